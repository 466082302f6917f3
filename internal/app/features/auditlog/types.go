// internal/app/features/auditlog/types.go
package auditlog

import (
	"github.com/dalemusser/reporthub/internal/app/store/audit"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
)

const pageSize = 50

// MsgLoadFailed is shown when the audit store cannot be read.
const MsgLoadFailed = "Non è stato possibile caricare il registro attività."

// listItem is one audit event row.
type listItem struct {
	When       string
	Category   string
	EventType  string
	ActorName  string
	TargetName string
	IP         string
	Success    bool
	Reason     string
	Details    string
}

type listData struct {
	viewdata.BaseVM

	Items []listItem

	// Filters
	Category  string
	EventType string
	StartDate string
	EndDate   string

	Categories []categoryOption
	EventTypes []string

	// Pagination
	Page       int
	TotalPages int
	Total      int
	HasPrev    bool
	HasNext    bool
	PrevURL    string
	NextURL    string
}

type categoryOption struct {
	Value string
	Label string
}

func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Accessi"},
		{Value: audit.CategoryAdmin, Label: "Gestione utenti"},
		{Value: audit.CategoryReport, Label: "Report"},
	}
}

// eventTypesForCategory lists the event types a category can hold; an empty
// category lists them all.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedUserDisabled,
		audit.EventLogout,
	}
	adminEvents := []string{
		audit.EventUserCreated,
		audit.EventUserEnabled,
		audit.EventUserDisabled,
		audit.EventUserPasswordChanged,
		audit.EventUserDeleted,
	}
	reportEvents := []string{
		audit.EventReportCreated,
		audit.EventReportUpdated,
		audit.EventReportDeleted,
		audit.EventReportSaveFailed,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case audit.CategoryReport:
		return reportEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents)+len(reportEvents))
		all = append(all, authEvents...)
		all = append(all, adminEvents...)
		return append(all, reportEvents...)
	default:
		return nil
	}
}
