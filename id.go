package escrow

import "github.com/havencare/escrow/id"

// ID is the primary identifier type for generated Escrow entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
