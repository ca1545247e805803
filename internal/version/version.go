// Package version centralizes the versioning for different logical components
// of the gateway.
//
// Version strings are baked into transcript keys. If the tool layer or the
// wire protocol changes incompatibly, bumping the matching version here makes
// old persisted transcripts unreachable instead of letting a new binary load
// a transcript it can no longer interpret.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComponentVersions holds the version strings for the logical parts of the
// application. Manually increment a version here before deploying a change to
// that component.
var ComponentVersions = struct {
	// Tools should be updated whenever the tool schemas or the failure
	// result format change, since both are embedded in stored transcripts.
	Tools string

	// Protocol should be updated whenever the transcript message shape
	// changes.
	Protocol string
}{
	Tools:    "v1.0",
	Protocol: "v1.0",
}

// TranscriptKey creates a consistent, version-aware key for persisting a
// session transcript.
//
// Example output: "mcp:session:a1b2c3d4...:tv1.0_pv1.0"
func TranscriptKey(prefix, sessionKey string) string {
	hasher := sha256.New()
	hasher.Write([]byte(sessionKey))
	keyHash := hex.EncodeToString(hasher.Sum(nil))

	versionString := fmt.Sprintf("tv%s_pv%s",
		ComponentVersions.Tools,
		ComponentVersions.Protocol,
	)

	return fmt.Sprintf("%s:%s:%s", prefix, keyHash, versionString)
}
