package agents

// JSON schema definitions for structured outputs. The completion service
// enforces these; Completion.Decode maps the payload onto the typed structs
// in outputs.go.

func obj(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func str() map[string]any { return map[string]any{"type": "string"} }
func num() map[string]any { return map[string]any{"type": "number"} }
func boolean() map[string]any { return map[string]any{"type": "boolean"} }
func arr(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

var profileCardSchema = &Schema{
	Name: "profile_card",
	Definition: obj(map[string]any{
		"name":       str(),
		"age":        num(),
		"occupation": str(),
		"location":   str(),
		"birthdate":  str(),
		"origin": obj(map[string]any{
			"city":    str(),
			"state":   str(),
			"country": str(),
		}, "city", "state", "country"),
		"astrological_notes": obj(map[string]any{
			"sun_sign":   str(),
			"moon_sign":  str(),
			"venus_sign": str(),
			"mars_sign":  str(),
		}, "sun_sign", "moon_sign", "venus_sign", "mars_sign"),
	}, "name", "age", "occupation", "location", "birthdate", "origin", "astrological_notes"),
}

var continueCardSchema = &Schema{
	Name: "continue_card",
	Definition: obj(map[string]any{
		"confirmation_message": str(),
	}, "confirmation_message"),
}

var choicesSchema = &Schema{
	Name: "choice_list",
	Definition: obj(map[string]any{
		"items": arr(obj(map[string]any{
			"key":   str(),
			"title": str(),
		}, "key", "title")),
	}, "items"),
}

var compatibilityCardSchema = &Schema{
	Name: "compatibility_card",
	Definition: obj(map[string]any{
		"title":    str(),
		"subtitle": str(),
		"overall":  num(),
		"items": arr(obj(map[string]any{
			"id":          str(),
			"leftEmoji":   str(),
			"leftZodiac":  str(),
			"rightZodiac": str(),
			"rightEmoji":  str(),
			"percent":     num(),
			"color":       str(),
		}, "id", "leftEmoji", "leftZodiac", "rightZodiac", "rightEmoji", "percent", "color")),
	}, "title", "subtitle", "overall", "items"),
}

var gameDashboardSchema = &Schema{
	Name: "compatibility_snapshot",
	Definition: obj(map[string]any{
		"scene": obj(map[string]any{
			"number": num(),
			"name":   str(),
		}, "number", "name"),
		"compatibility": num(),
		"delta": obj(map[string]any{
			"value":     num(),
			"direction": str(),
		}, "value", "direction"),
		"bars": arr(obj(map[string]any{
			"label":   str(),
			"percent": num(),
			"color":   str(),
		}, "label", "percent", "color")),
		"pills": arr(obj(map[string]any{
			"id":    str(),
			"icon":  str(),
			"value": num(),
		}, "id", "icon", "value")),
	}, "scene", "compatibility", "delta", "bars", "pills"),
}

var sceneScoreSchema = &Schema{
	Name: "scene_score",
	Definition: obj(map[string]any{
		"score":                 str(),
		"reasoning":             str(),
		"current-compatibility": str(),
	}, "score", "reasoning", "current-compatibility"),
}

var hasEndedSchema = &Schema{
	Name: "has_ended",
	Definition: obj(map[string]any{
		"has_ended": boolean(),
	}, "has_ended"),
}
