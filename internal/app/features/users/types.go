// internal/app/features/users/types.go
package users

import "github.com/dalemusser/reporthub/internal/app/system/viewdata"

// User-facing messages.
const (
	MsgUsernameRequired = "Il nome utente è obbligatorio."
	MsgDuplicate        = "Esiste già un utente con questo nome utente."
	MsgPasswordShort    = "La password deve contenere almeno 6 caratteri."
	MsgCreateFailed     = "Non è stato possibile creare l'utente. Riprova."
	MsgUpdateFailed     = "Non è stato possibile aggiornare l'utente. Riprova."
	MsgDeleteFailed     = "Non è stato possibile eliminare l'utente. Riprova."
	MsgLoadFailed       = "Non è stato possibile caricare gli utenti."
	MsgNotFound         = "Utente non trovato."
	MsgDeleteConfirm    = "Sei sicuro di voler eliminare questo utente? L'azione è permanente."
	MsgStreamError      = "Aggiornamento in tempo reale non disponibile. Ricarica la pagina."

	FlashCreated  = "Utente creato."
	FlashUpdated  = "Utente aggiornato."
	FlashPassword = "Password aggiornata."
	FlashDeleted  = "Utente eliminato."
)

// userRow is one managed account, as rendered and as pushed by the stream.
type userRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
	Password string `json:"password"`
	Revealed bool   `json:"-"`
}

type createForm struct {
	Username string
	Name     string
	Error    string
}

type listData struct {
	viewdata.BaseVM

	Rows      []userRow
	Form      createForm
	Flash     string
	Error     string // row action failure
	ErrorRow  string // id of the row Error belongs to
	StreamURL string
}

type deleteData struct {
	viewdata.BaseVM

	ID       string
	Username string
	Message  string
	Error    string
}
