package model

import "time"

const (
	StartingSenacoins = 100
	CoinsPerPoints    = 10
)

const (
	BonusDoublePoints = "doublePoints"
	BonusExtraTime    = "extraTime"
)

func DefaultBonuses() map[string]bool {
	return map[string]bool{
		BonusDoublePoints: false,
		BonusExtraTime:    false,
	}
}

type User struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	Fullname   string          `json:"fullname"`
	Phone      string          `json:"phone"`
	Senacoins  int             `json:"senacoins"`
	LoginCount int             `json:"loginCount"`
	Bonuses    map[string]bool `json:"bonuses"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
	LastLogin  time.Time       `json:"lastLogin"`
}

// PlayReport is the immutable record a finished session leaves on its owner.
type PlayReport struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	PlayedAt       time.Time  `json:"date"`
	Score          int        `json:"score"`
	Status         string     `json:"status"`
	Username       string     `json:"username"`
	Phase          int        `json:"phase"`
	ItemsCollected ItemCounts `json:"itemsCollected"`
}

// CoinsForScore is the currency a finished session credits: one senacoin per
// ten points, rounded down.
func CoinsForScore(score int) int {
	if score <= 0 {
		return 0
	}
	return score / CoinsPerPoints
}

type ReportSummary struct {
	TotalScore     int `json:"totalScore"`
	ReportsCount   int `json:"reportsCount"`
	PensCollected  int `json:"pensCollected"`
	CupsCollected  int `json:"cupsCollected"`
	BooksCollected int `json:"booksCollected"`
}

func Summarize(reports []PlayReport) ReportSummary {
	summary := ReportSummary{ReportsCount: len(reports)}
	for _, report := range reports {
		summary.TotalScore += report.Score
		summary.PensCollected += report.ItemsCollected.Pens
		summary.CupsCollected += report.ItemsCollected.Cups
		summary.BooksCollected += report.ItemsCollected.Books
	}
	return summary
}

// UserView is the user as the API returns it, derived totals included.
type UserView struct {
	User
	ReportSummary
}

func NewUserView(user User, reports []PlayReport) UserView {
	return UserView{User: user, ReportSummary: Summarize(reports)}
}
