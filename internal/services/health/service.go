package health

import "database/sql"

// Service encapsulates health-related checks.
type Service struct {
	db *sql.DB
}

// NewService constructs a new health service. db may be nil when the cache
// runs in memory.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Status returns a simple health payload naming the cache backend.
func (s *Service) Status() map[string]any {
	cacheBackend := "memory"
	if s.db != nil {
		cacheBackend = "postgres"
	}
	return map[string]any{
		"ok":    true,
		"cache": cacheBackend,
	}
}
