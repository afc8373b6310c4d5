package api

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/oapi-codegen/runtime"
)

// PathParam styles a single path parameter value (simple style, escaped).
func PathParam(name, value string) (string, error) {
	styled, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
	if err != nil {
		return "", errors.Wrapf(err, "style path parameter %s", name)
	}
	return styled, nil
}

// EncodeQuery renders params as a form-style query string with keys in
// sorted order. An empty map yields an empty string.
func EncodeQuery(params map[string]string) (string, error) {
	if len(params) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		styled, err := runtime.StyleParamWithLocation("form", true, k, runtime.ParamLocationQuery, params[k])
		if err != nil {
			return "", errors.Wrapf(err, "style query parameter %s", k)
		}
		parts = append(parts, styled)
	}
	return strings.Join(parts, "&"), nil
}
