package game

import "collectgame/backend/internal/model"

const (
	ItemTimeBonus       = "time-bonus"
	ItemScoreMultiplier = "score-multiplier"
	ItemMagnet          = "item-magnet"
	ItemExtraLife       = "extra-life"
	ItemHintSystem      = "hint-system"
	ItemSpeedBoost      = "speed-boost"
)

var catalog = []model.ShopItem{
	{ID: ItemTimeBonus, Name: "Time Bonus", Description: "Adds 30 extra seconds to the round", Price: 50, Icon: "clock", Category: "bonus"},
	{ID: ItemScoreMultiplier, Name: "Score Multiplier", Description: "Doubles points for 1 minute", Price: 75, Icon: "zap", Category: "bonus"},
	{ID: ItemMagnet, Name: "Item Magnet", Description: "Pulls items towards you for 30 seconds", Price: 60, Icon: "magnet", Category: "bonus"},
	{ID: ItemExtraLife, Name: "Extra Life", Description: "One more chance to clear the phase", Price: 100, Icon: "heart", Category: "bonus"},
	{ID: ItemHintSystem, Name: "Hint System", Description: "Shows where nearby items are", Price: 40, Icon: "eye", Category: "bonus"},
	{ID: ItemSpeedBoost, Name: "Speed Boost", Description: "Moves faster for 45 seconds", Price: 55, Icon: "wind", Category: "bonus"},
}

// Catalog returns a copy of the shop's fixed item list.
func Catalog() []model.ShopItem {
	items := make([]model.ShopItem, len(catalog))
	copy(items, catalog)
	return items
}

func FindItem(id string) (model.ShopItem, bool) {
	for _, item := range catalog {
		if item.ID == id {
			return item, true
		}
	}
	return model.ShopItem{}, false
}
