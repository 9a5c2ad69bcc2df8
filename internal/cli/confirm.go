package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BartekS5/marketsync/internal/config"
	"github.com/BartekS5/marketsync/pkg/models"
	"github.com/BartekS5/marketsync/pkg/utils"
)

// ConfirmationToken unlocks a production overwrite without the prompt.
const ConfirmationToken = "overwrite-production"

var (
	ErrDeclined  = errors.New("operation declined by operator")
	ErrBadToken  = errors.New("invalid --confirm token")
	ErrSameStore = errors.New("source and target are the same database")
)

// confirmOverwrite gates a run that replaces data in target. A matching
// token skips the prompt; otherwise one line is read from in and only an
// affirmative answer lets the run continue. It returns how the run was
// confirmed.
func confirmOverwrite(in io.Reader, out io.Writer, token string, source, target config.Endpoint, collections []string) (string, error) {
	if token != "" {
		if token != ConfirmationToken {
			return "", fmt.Errorf("%w: expected %q", ErrBadToken, ConfirmationToken)
		}
		return models.ConfirmToken, nil
	}

	fmt.Fprintf(out, "\nWARNING: this replaces data in %s (database %q) with data from %s (database %q).\n",
		target.Environment.Label(), target.Database, source.Environment.Label(), source.Database)
	fmt.Fprintf(out, "Collections: %s\n", strings.Join(collections, ", "))
	fmt.Fprintf(out, "Collections missing or empty in %s are left as they are. This cannot be undone.\n", source.Environment.Label())
	fmt.Fprint(out, "Continue? (yes/no): ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	if !utils.IsAffirmative(answer) {
		return "", ErrDeclined
	}
	return models.ConfirmPrompt, nil
}
