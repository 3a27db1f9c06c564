package classifier

import (
	"context"
	"fmt"
	"strings"
)

// Result is the outcome of classifying one upload.
type Result struct {
	Inferred bool
	Label    string
	Display  string
}

// Classifier infers a label for an upload. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, filename string, image []byte) (Result, error)
}

// KeywordClassifier infers labels from the upload's filename only; the image is ignored.
type KeywordClassifier struct {
	catalog *Catalog
}

// NewKeywordClassifier builds a classifier over catalog, falling back to DefaultCatalog when nil.
func NewKeywordClassifier(catalog *Catalog) *KeywordClassifier {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &KeywordClassifier{catalog: catalog}
}

// Classify matches the sanitized, lowercased filename against the catalog keywords.
// No match is reported as Result{Inferred: false}, not as an error.
func (k *KeywordClassifier) Classify(ctx context.Context, filename string, _ []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	label, ok := k.catalog.Match(strings.ToLower(SecureFilename(filename)))
	if !ok {
		return Result{}, nil
	}
	display, ok := k.catalog.DisplayName(label)
	if !ok {
		// NewCatalog rejects catalogs like this, so reaching here is a programming error.
		return Result{}, fmt.Errorf("classifier: label %q has no display name", label)
	}
	return Result{Inferred: true, Label: label, Display: display}, nil
}
