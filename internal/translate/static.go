package translate

import (
	"context"
	"strings"
)

// Pseudo produces pseudo-localized text: upper-cased and bracketed so
// untranslated strings stand out in the rendered output.
type Pseudo struct{}

func (Pseudo) Name() string { return "pseudo" }

func (Pseudo) Translate(_ context.Context, text string) (string, error) {
	return "⟦" + strings.ToUpper(text) + "⟧", nil
}
