package keep

import "github.com/xraph/keep/id"

// ID is the TypeID assigned to documents created without an id.
type ID = id.ID

// Prefix identifies the document kind encoded in a generated ID.
type Prefix = id.Prefix
