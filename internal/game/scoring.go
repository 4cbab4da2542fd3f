// Package game holds the rules that do not touch storage: points per
// collected item, consumable effects, and the shop catalog.
package game

import (
	"strings"
	"time"

	"collectgame/backend/internal/model"
)

// FallbackPoints is awarded for item types missing from the points table.
const FallbackPoints = 10

type PointsTable map[string]int

func DefaultPointsTable() PointsTable {
	return PointsTable{
		"pen":  10,
		"cup":  15,
		"book": 20,
	}
}

var categories = map[string]string{
	"pen":   model.CategoryPens,
	"pens":  model.CategoryPens,
	"cup":   model.CategoryCups,
	"cups":  model.CategoryCups,
	"book":  model.CategoryBooks,
	"books": model.CategoryBooks,
}

// Category maps an item type as the client names it to its counter.
func Category(itemType string) (string, bool) {
	category, ok := categories[normalizeItemType(itemType)]
	return category, ok
}

type Award struct {
	Points     int    `json:"points"`
	Category   string `json:"category,omitempty"`
	Multiplied bool   `json:"multiplied"`
}

type Engine struct {
	points PointsTable
}

func NewEngine(points PointsTable) *Engine {
	if points == nil {
		points = DefaultPointsTable()
	}
	return &Engine{points: points}
}

// Score prices one collect event. An active multiplier doubles the base value.
func (e *Engine) Score(itemType string, effects Effects, now time.Time) Award {
	award := Award{Points: e.basePoints(itemType)}
	if category, ok := Category(itemType); ok {
		award.Category = category
	}
	if effects.MultiplierActive(now) {
		award.Points *= MultiplierFactor
		award.Multiplied = true
	}
	return award
}

func (e *Engine) basePoints(itemType string) int {
	key := normalizeItemType(itemType)
	if points, ok := e.points[key]; ok && points > 0 {
		return points
	}
	// Plural category names price like their singular item.
	if points, ok := e.points[strings.TrimSuffix(key, "s")]; ok && points > 0 {
		return points
	}
	return FallbackPoints
}

func normalizeItemType(itemType string) string {
	return strings.ToLower(strings.TrimSpace(itemType))
}
