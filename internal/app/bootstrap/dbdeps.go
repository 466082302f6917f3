// internal/app/bootstrap/dbdeps.go
package bootstrap

import "github.com/dalemusser/reporthub/internal/app/store/docstore"

// DBDeps holds the document store the app runs on.
type DBDeps struct {
	Store   docstore.Client
	Backend string // one of the docstore.Backend* names
}
