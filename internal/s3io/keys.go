package s3io

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Key layout:
//
//	claims/<claimID>/<ulid>_<filename>          committed document
//	staging/claims/<claimID>/<ulid>_<filename>  presigned upload awaiting the indexer
const (
	DocumentPrefix = "claims/"
	StagingPrefix  = "staging/"
)

// StagingKey returns a fresh staging key for a presigned upload.
func StagingKey(claimID, filename string) string {
	return fmt.Sprintf("%s%s%s/%s_%s", StagingPrefix, DocumentPrefix, claimID, ulid.Make().String(), filename)
}

// CommittedKey maps a staging key to its committed location.
func CommittedKey(stagingKey string) string {
	return strings.TrimPrefix(stagingKey, StagingPrefix)
}

// IsStaging reports whether key lives under the staging prefix.
func IsStaging(key string) bool {
	return strings.HasPrefix(key, StagingPrefix)
}

// ParseKey extracts the claim id and original filename from a committed or staging key.
func ParseKey(key string) (claimID, filename string, ok bool) {
	key = strings.TrimPrefix(key, StagingPrefix)
	rest, found := strings.CutPrefix(key, DocumentPrefix)
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", false
	}
	token, name, found := strings.Cut(parts[1], "_")
	if !found || name == "" {
		return "", "", false
	}
	if _, err := ulid.ParseStrict(token); err != nil {
		return "", "", false
	}
	return parts[0], name, true
}

// UploadHeaders builds the headers a client must send on the presigned PUT.
// They must match what was signed.
func UploadHeaders(claimID, contentType, uploadedBy string) map[string]string {
	return map[string]string{
		"Content-Type":                 contentType,
		"x-amz-server-side-encryption": "aws:kms",
		"x-amz-meta-claim_id":          claimID,
		"x-amz-meta-uploaded_by":       uploadedBy,
	}
}
