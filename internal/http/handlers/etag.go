package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// BrowseValidator picks the ETag strength and freshness for a public browse response.
type BrowseValidator struct {
	// Weak marks ranked product lists: a match promises the same ranking, not the same bytes.
	Weak   bool
	MaxAge time.Duration
}

var (
	countValidator = BrowseValidator{}
	listValidator  = BrowseValidator{Weak: true}
)

func (v BrowseValidator) withMaxAge(d time.Duration) BrowseValidator {
	v.MaxAge = d
	return v
}

func (v BrowseValidator) cacheControl() string {
	if v.MaxAge <= 0 {
		return "public, no-cache"
	}
	return "public, max-age=" + strconv.Itoa(int(v.MaxAge/time.Second))
}

// RespondJSONWithETag answers a browse payload with a validator and honors If-None-Match.
func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}, v BrowseValidator) {
	etag, err := buildETag(payload, v.Weak)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", v.cacheControl())

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

func buildETag(payload interface{}, weak bool) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)
	tag := `"` + hex.EncodeToString(sum[:16]) + `"`

	if weak {
		return "W/" + tag, nil
	}
	return tag, nil
}

// ifNoneMatchMatches uses weak comparison, as If-None-Match requires.
func ifNoneMatchMatches(headerValue, currentETag string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || currentETag == "" {
		return false
	}

	if headerValue == "*" {
		return true
	}

	current := opaqueTag(currentETag)

	for _, part := range strings.Split(headerValue, ",") {
		if opaqueTag(part) == current {
			return true
		}
	}

	return false
}

func opaqueTag(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "W/")
}
