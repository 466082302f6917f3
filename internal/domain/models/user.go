// internal/domain/models/user.go
package models

// MasterUsername is the login of the single administrator account.
const MasterUsername = "master"

// User is an account that can sign in and author reports.
//
// NOTE:
//   - Username is stored lower-cased; lookups lower-case their input.
//   - Password is kept in clear text. The master seed record may predate
//     the field, so an empty Password means "no password set".
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
	Password string `json:"password,omitempty"`
}

// IsMaster reports whether u is the administrator account.
func (u User) IsMaster() bool {
	return u.Username == MasterUsername
}

// DisplayName returns Name, falling back to Username when Name is blank.
func (u User) DisplayName() string {
	if u.Name == "" {
		return u.Username
	}
	return u.Name
}
