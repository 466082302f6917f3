// internal/app/features/reports/types.go
package reports

import (
	"github.com/dalemusser/reporthub/internal/app/system/reportfilter"
	"github.com/dalemusser/reporthub/internal/app/system/viewdata"
)

// User-facing messages.
const (
	MsgSaveFailed    = "Non è stato possibile salvare il report sul cloud. Controlla la tua connessione e riprova."
	MsgInvalidDate   = "Data non valida."
	MsgLoadFailed    = "Non è stato possibile caricare i report."
	MsgNotFound      = "Report non trovato."
	MsgDeleteFailed  = "Non è stato possibile eliminare il report. Riprova."
	MsgDeleteConfirm = "Sei sicuro di voler eliminare questo report? L'azione è permanente."
	MsgStreamError   = "Aggiornamento in tempo reale non disponibile. Ricarica la pagina."
	FlashSaved       = "Report salvato."
	FlashDeleted     = "Report eliminato."
)

// Editor form actions.
const (
	actionSave         = "save"
	actionRetry        = "retry"
	actionAddVisit     = "add_visit"
	actionChangeDate   = "change_date"
	actionDownload     = "download"
	actionDismiss      = "dismiss"
	actionEditConflict = "edit_conflict"
	actionDiscard      = "discard"
)

// Editor modals.
const (
	modalConflict = "conflict"
	modalFailed   = "failed"
)

type editorData struct {
	viewdata.BaseVM

	Day     string // YYYY-MM-DD for the date input
	Text    string
	Editing bool
	Visits  int
	Error   string

	Modal        string
	Message      string
	ConflictKey  string
	ConflictDate string
}

// listRow is one saved report as shown in the table and pushed by the stream.
type listRow struct {
	Key       string `json:"key"`
	Day       string `json:"day"`
	DateLabel string `json:"dateLabel"`
	Author    string `json:"author,omitempty"`
	Visits    int    `json:"visits"`
	Preview   string `json:"preview"`
}

// streamPayload is the data of one "reports" event.
type streamPayload struct {
	Rows  []listRow `json:"rows"`
	Count int       `json:"count"`
}

type listData struct {
	viewdata.BaseVM

	Rows       []listRow
	Filter     reportfilter.Filter
	Authors    []reportfilter.Option
	ShowAuthor bool
	Flash      string
	StreamURL  string
	ExportURL  string
}

type deleteData struct {
	viewdata.BaseVM

	Key       string
	DateLabel string
	Author    string
	Message   string
	Error     string
}
