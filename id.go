package distribution

import "github.com/xraph/distribution/id"

// ID is the identifier type for ledger events and operations.
type ID = id.ID

// Prefix identifies the kind of record encoded in a TypeID.
type Prefix = id.Prefix
