// Package router classifies notepad locators into resource kinds and gates
// which operations each kind allows.
package router

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/notepad/pkg/types"
)

// Router maps locators to resources. A Router holds no mutable state, so
// independent stores may each construct their own.
type Router struct {
	collection string
	live       string
	typeTags   map[types.Kind]string
	allowed    map[types.Kind]map[string]bool
}

// New returns a Router for the notes locator grammar.
func New() *Router {
	return &Router{
		collection: types.CollectionSegment,
		live:       types.LiveSegment,
		typeTags: map[types.Kind]string{
			types.KindCollection: types.ContentTypeDir,
			types.KindLiveView:   types.ContentTypeDir,
			types.KindItem:       types.ContentTypeItem,
		},
		allowed: map[types.Kind]map[string]bool{
			types.KindCollection: {
				types.OpQuery:  true,
				types.OpInsert: true,
				types.OpUpdate: true,
				types.OpDelete: true,
			},
			types.KindItem: {
				types.OpQuery:  true,
				types.OpUpdate: true,
				types.OpDelete: true,
			},
			types.KindLiveView: {
				types.OpQuery: true,
			},
		},
	}
}

// Classify parses locator. It accepts exactly "notes", "notes/<digits>" and
// "notes/live"; anything else fails with ErrInvalidLocator. Item locators
// come back in canonical form, so "notes/007" resolves to "notes/7".
func (r *Router) Classify(locator string) (types.Resource, error) {
	segments := strings.Split(locator, types.LocatorSeparator)
	if segments[0] != r.collection {
		return types.Resource{}, invalid(locator)
	}

	switch len(segments) {
	case 1:
		return types.Resource{Kind: types.KindCollection, Locator: locator}, nil
	case 2:
		second := segments[1]
		if second == r.live {
			return types.Resource{Kind: types.KindLiveView, Locator: locator}, nil
		}
		if !isDigits(second) {
			return types.Resource{}, invalid(locator)
		}
		id, err := strconv.ParseInt(second, 10, 64)
		if err != nil {
			return types.Resource{}, invalid(locator)
		}
		return types.Resource{Kind: types.KindItem, ID: id, Locator: types.ItemLocator(id)}, nil
	default:
		return types.Resource{}, invalid(locator)
	}
}

// TypeTagFor returns the content type tag for kind.
func (r *Router) TypeTagFor(kind types.Kind) (string, error) {
	tag, ok := r.typeTags[kind]
	if !ok {
		return "", fmt.Errorf("%w: no type tag for kind %s", types.ErrInvalidLocator, kind)
	}
	return tag, nil
}

// TypeTag classifies locator and returns its content type tag.
func (r *Router) TypeTag(locator string) (string, error) {
	res, err := r.Classify(locator)
	if err != nil {
		return "", err
	}
	return r.TypeTagFor(res.Kind)
}

// Allows returns ErrUnsupportedOperation when op may not run against kind.
func (r *Router) Allows(kind types.Kind, op string) error {
	if r.allowed[kind][op] {
		return nil
	}
	return fmt.Errorf("%w: %s on %s", types.ErrUnsupportedOperation, op, kind)
}

func invalid(locator string) error {
	return fmt.Errorf("%w: %q", types.ErrInvalidLocator, locator)
}

// isDigits reports whether s is a non-empty run of ASCII decimal digits.
// strconv alone would also accept a leading sign.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
