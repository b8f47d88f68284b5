package recon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/username/brokerecon/backend/src/models"
)

// AccountMismatchError reports that the clearing side and the broker side do
// not carry the same set of CP codes. It is a pairing error (wrong files
// uploaded together), distinct from a genuine 0% match, so it aborts the run
// before matching starts.
type AccountMismatchError struct {
	ClearingOnly []string
	BrokerOnly   []string
}

func (e *AccountMismatchError) Error() string {
	var parts []string
	if len(e.ClearingOnly) > 0 {
		parts = append(parts, fmt.Sprintf("CP codes only in clearing file: %s", strings.Join(e.ClearingOnly, ", ")))
	}
	if len(e.BrokerOnly) > 0 {
		parts = append(parts, fmt.Sprintf("CP codes only in broker files: %s", strings.Join(e.BrokerOnly, ", ")))
	}
	return "account code mismatch between clearing and broker files; " + strings.Join(parts, "; ")
}

// ValidateAccountCodes checks that the distinct CP codes on both sides are
// exactly equal. Subset is not enough: a missing code on either side means an
// entire account's trades cannot possibly reconcile.
func ValidateAccountCodes(clearing, broker []models.CanonicalTrade) error {
	clearingSet := cpCodeSet(clearing)
	brokerSet := cpCodeSet(broker)

	var clearingOnly, brokerOnly []string
	for code := range clearingSet {
		if !brokerSet[code] {
			clearingOnly = append(clearingOnly, code)
		}
	}
	for code := range brokerSet {
		if !clearingSet[code] {
			brokerOnly = append(brokerOnly, code)
		}
	}
	if len(clearingOnly) == 0 && len(brokerOnly) == 0 {
		return nil
	}
	sort.Strings(clearingOnly)
	sort.Strings(brokerOnly)
	return &AccountMismatchError{ClearingOnly: clearingOnly, BrokerOnly: brokerOnly}
}

func cpCodeSet(trades []models.CanonicalTrade) map[string]bool {
	set := make(map[string]bool)
	for i := range trades {
		if code := strings.TrimSpace(trades[i].CPCode); code != "" {
			set[code] = true
		}
	}
	return set
}
