package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	apperrors "collectgame/backend/internal/errors"
	"collectgame/backend/internal/model"
	"collectgame/backend/internal/repository"
)

const (
	DefaultRankingLimit = 50
	reportSessionWindow = 20
	recentSessionsShown = 10
	searchResultLimit   = 20
	minSearchLength     = 2
)

type ReportService struct {
	store *repository.Store
	clock Clock
}

type RankingEntry struct {
	Position       int       `json:"position"`
	ID             string    `json:"id"`
	Fullname       string    `json:"fullname"`
	TotalScore     int       `json:"totalScore"`
	Senacoins      int       `json:"senacoins"`
	PensCollected  int       `json:"pensCollected"`
	CupsCollected  int       `json:"cupsCollected"`
	BooksCollected int       `json:"booksCollected"`
	CreatedAt      time.Time `json:"createdAt"`
}

type TopPlayer struct {
	Fullname   string `json:"fullname"`
	TotalScore int    `json:"totalScore"`
}

type Stats struct {
	TotalUsers          int        `json:"totalUsers"`
	TotalScore          int        `json:"totalScore"`
	TotalSenacoins      int        `json:"totalSenacoins"`
	TotalPensCollected  int        `json:"totalPensCollected"`
	TotalCupsCollected  int        `json:"totalCupsCollected"`
	TotalBooksCollected int        `json:"totalBooksCollected"`
	AverageScore        int        `json:"averageScore"`
	TopPlayer           *TopPlayer `json:"topPlayer"`
}

type SessionStats struct {
	Total       int `json:"total"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	SuccessRate int `json:"successRate"`
}

type UserReport struct {
	User           *model.UserView `json:"user"`
	SessionStats   SessionStats    `json:"sessionStats"`
	RecentSessions []SessionView   `json:"recentSessions"`
}

type SearchResult struct {
	ID         string    `json:"id"`
	Fullname   string    `json:"fullname"`
	TotalScore int       `json:"totalScore"`
	Senacoins  int       `json:"senacoins"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SearchResults struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

func NewReportService(store *repository.Store, opts ...Option) *ReportService {
	o := buildOptions(opts)
	return &ReportService{store: store, clock: o.clock}
}

func (s *ReportService) Ranking(ctx context.Context, limit int) ([]RankingEntry, *apperrors.APIError) {
	if limit <= 0 {
		limit = DefaultRankingLimit
	}
	users, apiErr := s.rankedUsers(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if len(users) > limit {
		users = users[:limit]
	}

	ranking := make([]RankingEntry, 0, len(users))
	for i, user := range users {
		ranking = append(ranking, RankingEntry{
			Position:       i + 1,
			ID:             user.ID,
			Fullname:       user.Fullname,
			TotalScore:     user.TotalScore,
			Senacoins:      user.Senacoins,
			PensCollected:  user.PensCollected,
			CupsCollected:  user.CupsCollected,
			BooksCollected: user.BooksCollected,
			CreatedAt:      user.CreatedAt,
		})
	}
	return ranking, nil
}

func (s *ReportService) Stats(ctx context.Context) (*Stats, *apperrors.APIError) {
	users, apiErr := s.rankedUsers(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	stats := &Stats{TotalUsers: len(users)}
	for _, user := range users {
		stats.TotalScore += user.TotalScore
		stats.TotalSenacoins += user.Senacoins
		stats.TotalPensCollected += user.PensCollected
		stats.TotalCupsCollected += user.CupsCollected
		stats.TotalBooksCollected += user.BooksCollected
	}
	if len(users) > 0 {
		stats.AverageScore = int(math.Round(float64(stats.TotalScore) / float64(len(users))))
		stats.TopPlayer = &TopPlayer{Fullname: users[0].Fullname, TotalScore: users[0].TotalScore}
	}
	return stats, nil
}

// UserReport summarizes the outcome of the user's last twenty sessions.
func (s *ReportService) UserReport(ctx context.Context, userID string) (*UserReport, *apperrors.APIError) {
	user, apiErr := getUser(ctx, s.store.Users, userID)
	if apiErr != nil {
		return nil, apiErr
	}
	view, apiErr := loadUserView(ctx, s.store.Users, user)
	if apiErr != nil {
		return nil, apiErr
	}

	sessions, err := s.store.Sessions.ListByUser(ctx, userID, reportSessionWindow)
	if err != nil {
		return nil, apperrors.Storage("failed to load sessions", err)
	}

	stats := SessionStats{Total: len(sessions)}
	for _, session := range sessions {
		switch session.Status {
		case model.StatusCompleted:
			stats.Completed++
		case model.StatusFailed:
			stats.Failed++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = int(math.Round(float64(stats.Completed) * 100 / float64(stats.Total)))
	}

	now := s.clock()
	recent := make([]SessionView, 0, recentSessionsShown)
	for i := 0; i < len(sessions) && i < recentSessionsShown; i++ {
		recent = append(recent, toSessionView(&sessions[i], now))
	}
	return &UserReport{User: view, SessionStats: stats, RecentSessions: recent}, nil
}

// Search matches query against full names, ignoring case.
func (s *ReportService) Search(ctx context.Context, query string) (*SearchResults, *apperrors.APIError) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchLength {
		return nil, apperrors.Validation("search query must have at least 2 characters")
	}
	users, apiErr := s.rankedUsers(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	needle := strings.ToLower(query)
	results := SearchResults{Results: []SearchResult{}}
	for _, user := range users {
		if !strings.Contains(strings.ToLower(user.Fullname), needle) {
			continue
		}
		results.Total++
		if len(results.Results) < searchResultLimit {
			results.Results = append(results.Results, SearchResult{
				ID:         user.ID,
				Fullname:   user.Fullname,
				TotalScore: user.TotalScore,
				Senacoins:  user.Senacoins,
				CreatedAt:  user.CreatedAt,
			})
		}
	}
	return &results, nil
}

// rankedUsers loads every user with derived totals, highest total score
// first. Ties keep the earlier registration ahead.
func (s *ReportService) rankedUsers(ctx context.Context) ([]model.UserView, *apperrors.APIError) {
	users, err := s.store.Users.ListAll(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to list users", err)
	}
	reports, err := s.store.Users.ListAllReports(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to list play reports", err)
	}

	views := make([]model.UserView, 0, len(users))
	for _, user := range users {
		views = append(views, model.NewUserView(user, reports[user.ID]))
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].TotalScore != views[j].TotalScore {
			return views[i].TotalScore > views[j].TotalScore
		}
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views, nil
}
