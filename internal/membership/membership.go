// Package membership is the engine's view of the external group
// membership/authorization service.
package membership

import "context"

// Service answers group-scoped authorization questions. Creator checks are
// made against the bet row directly; admin and membership status come from
// here.
type Service interface {
	IsAdmin(ctx context.Context, groupID, userID string) (bool, error)
	IsActiveMember(ctx context.Context, groupID, userID string) (bool, error)
}

// StaticService is a fixed-table Service for tests and standalone runs.
// When AllowAll is set every user is an active member of every group.
type StaticService struct {
	Admins   map[string][]string // groupID -> admin user IDs
	Members  map[string][]string // groupID -> member user IDs
	AllowAll bool
}

func (s *StaticService) IsAdmin(ctx context.Context, groupID, userID string) (bool, error) {
	if s == nil {
		return false, nil
	}
	return contains(s.Admins[groupID], userID), nil
}

func (s *StaticService) IsActiveMember(ctx context.Context, groupID, userID string) (bool, error) {
	if s == nil {
		return false, nil
	}
	if s.AllowAll {
		return true, nil
	}
	if contains(s.Members[groupID], userID) {
		return true, nil
	}
	return contains(s.Admins[groupID], userID), nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

var _ Service = (*StaticService)(nil)
