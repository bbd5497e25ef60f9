package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/digkill/TGPromoNFTBot/internal/docstore"
	"github.com/digkill/TGPromoNFTBot/internal/models"
)

// ErrCorruptRecord is returned when a stored document cannot be mapped back
// onto a model: unknown schema version or enum value.
var ErrCorruptRecord = errors.New("corrupt record")

func checkSchema(doc *docstore.Document) error {
	if v := doc.Fields.Int64("schemaVersion"); v != models.SchemaVersion {
		return fmt.Errorf("%w: %s has schema version %d", ErrCorruptRecord, doc.Key, v)
	}
	return nil
}

func corrupt(key string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorruptRecord, key, err)
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func now() time.Time {
	return time.Now().UTC()
}
