package workflow

import "github.com/spec-kit/bug-tracker/internal/domain"

var (
	qaUser    = &domain.User{ID: "u-qa", Username: "quinn", Roles: []domain.Role{domain.RoleQA}}
	adminUser = &domain.User{ID: "u-admin", Username: "ada", Roles: []domain.Role{domain.RoleAdmin}}
	devUser   = &domain.User{ID: "u-dev", Username: "dora", Roles: []domain.Role{domain.RoleDeveloper}}
	respUser  = &domain.User{ID: "u-resp", Username: "remy", Roles: []domain.Role{domain.RoleDeveloper}}
	authorID  = "u-author"
)

func itemsIn(status domain.Status) []domain.TrackableItem {
	bug := domain.NewBug(authorID, "tr-1", respUser.ID, "Broken login", "", domain.PriorityMajor)
	bug.ID = "bug-1"
	report := domain.NewBugReport(authorID, "tr-1", respUser.ID, "Typo on pricing page", "", domain.PriorityMinor)
	report.ID = "report-1"
	for _, item := range []domain.TrackableItem{bug, report} {
		if err := item.RestoreStatus(status); err != nil {
			panic(err)
		}
	}
	return []domain.TrackableItem{bug, report}
}
