package cellarcache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/unkn0wn-root/cellarcache/internal/util"
)

// Identifier is implemented by id types that carry their own canonical form
// (see catalog.ID). It is consulted before any other serialization.
type Identifier interface {
	CacheIdentifier() string
}

// Key builds the namespace-relative key "{category}:{identifier}".
//
// id may be a string (used verbatim), an Identifier, an integer or bool, or any
// JSON-serializable value (filters, pagination), which is serialized
// canonically so equal queries share one slot.
func Key(category string, id any) string {
	return category + ":" + identifier(id)
}

func identifier(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case Identifier:
		return v.CacheIdentifier()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	s, err := util.CanonicalJSON(id)
	if err != nil {
		return fmt.Sprint(id)
	}
	return s
}

// category extracts the category from a namespace-relative key.
func category(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
