package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OutputExt is the extension of generated listings.
const OutputExt = ".xlsx"

// outputTimeLayout renders the generation time down to the second.
const outputTimeLayout = "2006-01-02_15-04-05"

// unsafeNameChars matches anything that should not reach a file name.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// outputNamePattern accepts names produced by OutputFileName.
var outputNamePattern = regexp.MustCompile(`^lista_[0-9]{4}-[0-9]{2}-[0-9]{2}_[0-9]{2}-[0-9]{2}-[0-9]{2}_MFN[A-Za-z0-9._-]*-[A-Za-z0-9._-]*_[0-9a-f]{8}\.xlsx$`)

// sanitizeNamePart keeps identifier text usable inside a file name.
func sanitizeNamePart(s string) string {
	s = unsafeNameChars.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, ".")
}

// newNameToken returns a short random token that keeps two listings with
// the same range and second from colliding.
func newNameToken() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

// OutputFileName builds the listing name
// lista_<YYYY-MM-DD_HH-MM-SS>_MFN<min>-<max>_<token>.xlsx.
func OutputFileName(at time.Time, minMFN, maxMFN, token string) string {
	return fmt.Sprintf("lista_%s_MFN%s-%s_%s%s",
		at.Format(outputTimeLayout),
		sanitizeNamePart(minMFN),
		sanitizeNamePart(maxMFN),
		token,
		OutputExt,
	)
}

// IsOutputFileName reports whether name looks like a generated listing.
// Used to guard downloads against arbitrary paths.
func IsOutputFileName(name string) bool {
	return outputNamePattern.MatchString(name)
}
