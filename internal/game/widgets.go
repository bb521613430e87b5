package game

import (
	"fmt"

	"github.com/cupidlabs/cupid-backend/internal/agents"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

// Widget payload type tags understood by the frontend renderer.
const (
	WidgetProfileCard           = "ProfileCard"
	WidgetContinueCard          = "ContinueCard"
	WidgetChoiceList            = "ChoiceList"
	WidgetCompatibilityAnalysis = "CompatibilityAnalysis"
	WidgetCompatibilitySnapshot = "CompatibilitySnapshot"
)

func profileCardItem(card agents.ProfileCardOutput) *types.ThreadItem {
	return &types.ThreadItem{
		Kind: types.ItemKindWidget,
		Widget: map[string]any{
			"type":       WidgetProfileCard,
			"name":       card.Name,
			"age":        card.Age,
			"occupation": card.Occupation,
			"location":   card.Location,
			"birthdate":  card.Birthdate,
			"origin": map[string]any{
				"city":    card.Origin.City,
				"state":   card.Origin.State,
				"country": card.Origin.Country,
			},
			"astrological_notes": map[string]any{
				"sun_sign":   card.AstrologicalNotes.SunSign,
				"moon_sign":  card.AstrologicalNotes.MoonSign,
				"venus_sign": card.AstrologicalNotes.VenusSign,
				"mars_sign":  card.AstrologicalNotes.MarsSign,
			},
		},
		CopyText: fmt.Sprintf("%s, %.0f. %s in %s.", card.Name, card.Age, card.Occupation, card.Location),
	}
}

func continueCardItem(card agents.ContinueCardOutput) *types.ThreadItem {
	return &types.ThreadItem{
		Kind: types.ItemKindWidget,
		Widget: map[string]any{
			"type":                 WidgetContinueCard,
			"confirmation_message": card.ConfirmationMessage,
		},
		CopyText: card.ConfirmationMessage,
	}
}

func choiceListItem(choices agents.ChoicesOutput) *types.ThreadItem {
	items := make([]map[string]any, 0, len(choices.Items))
	copyText := ""
	for _, c := range choices.Items {
		items = append(items, map[string]any{"key": c.Key, "title": c.Title})
		copyText += fmt.Sprintf("%s - %s\n", c.Key, c.Title)
	}
	return &types.ThreadItem{
		Kind:     types.ItemKindWidget,
		Widget:   map[string]any{"type": WidgetChoiceList, "items": items},
		CopyText: copyText,
	}
}

func compatibilityCardItem(card agents.CompatibilityCardOutput) *types.ThreadItem {
	items := make([]map[string]any, 0, len(card.Items))
	for _, it := range card.Items {
		items = append(items, map[string]any{
			"id":          it.ID,
			"leftEmoji":   it.LeftEmoji,
			"leftZodiac":  it.LeftZodiac,
			"rightZodiac": it.RightZodiac,
			"rightEmoji":  it.RightEmoji,
			"percent":     it.Percent,
			"color":       it.Color,
		})
	}
	return &types.ThreadItem{
		Kind: types.ItemKindWidget,
		Widget: map[string]any{
			"type":     WidgetCompatibilityAnalysis,
			"title":    card.Title,
			"subtitle": card.Subtitle,
			"overall":  card.Overall,
			"items":    items,
		},
		CopyText: fmt.Sprintf("%s. Overall compatibility %.0f%%.", card.Title, card.Overall),
	}
}

func compatibilitySnapshotItem(snapshot agents.GameDashboardOutput) *types.ThreadItem {
	bars := make([]map[string]any, 0, len(snapshot.Bars))
	for _, b := range snapshot.Bars {
		bars = append(bars, map[string]any{"label": b.Label, "percent": b.Percent, "color": b.Color})
	}
	pills := make([]map[string]any, 0, len(snapshot.Pills))
	for _, p := range snapshot.Pills {
		pills = append(pills, map[string]any{"id": p.ID, "icon": p.Icon, "value": p.Value})
	}
	return &types.ThreadItem{
		Kind: types.ItemKindWidget,
		Widget: map[string]any{
			"type": WidgetCompatibilitySnapshot,
			"scene": map[string]any{
				"number": snapshot.Scene.Number,
				"name":   snapshot.Scene.Name,
			},
			"compatibility": snapshot.Compatibility,
			"delta": map[string]any{
				"value":     snapshot.Delta.Value,
				"direction": snapshot.Delta.Direction,
			},
			"bars":  bars,
			"pills": pills,
		},
		CopyText: fmt.Sprintf("Scene %.0f: %s. Compatibility %.0f.",
			snapshot.Scene.Number, snapshot.Scene.Name, snapshot.Compatibility),
	}
}
