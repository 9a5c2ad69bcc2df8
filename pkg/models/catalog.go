package models

// Catalog represents the root of the collection catalog file.
type Catalog struct {
	Collections []string `json:"collections" yaml:"collections"`
	Schema      []string `json:"schema" yaml:"schema"`
}

// DefaultCollections is the set of collections that make up the
// marketplace database.
var DefaultCollections = []string{
	"users",
	"products",
	"categories",
	"categoryattributes",
	"orders",
	"reviews",
	"discounts",
	"sponsors",
	"adminnews",
	"notifications",
	"cookieconsents",
	"wishlists",
}

// DefaultSchemaCollections holds the catalog definition collections moved by
// the schema-only sync.
var DefaultSchemaCollections = []string{
	"categories",
	"categoryattributes",
}

func DefaultCatalog() *Catalog {
	return &Catalog{
		Collections: append([]string(nil), DefaultCollections...),
		Schema:      append([]string(nil), DefaultSchemaCollections...),
	}
}
