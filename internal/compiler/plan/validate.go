package plan

import (
	"strconv"
	"strings"

	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
)

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

// Validate reports every structural problem of the document at once. The
// result is nil or an errors.ErrorList.
func Validate(doc *Document) error {
	var list errors.ErrorList

	if strings.TrimSpace(doc.Namespace) == "" {
		list = append(list, errors.NewMissingField(errors.Location{Field: "namespace"}))
	}
	if strings.TrimSpace(doc.SanitizedNamespace) == "" {
		list = append(list, errors.NewMissingField(errors.Location{Field: "sanitizedNamespace"}))
	}

	seen := make(map[string]bool, len(doc.Resources))
	for i, res := range doc.Resources {
		loc := errors.Location{Resource: res.Name}
		if strings.TrimSpace(res.Name) == "" {
			loc.Field = "resources[" + strconv.Itoa(i) + "].name"
			list = append(list, errors.NewMissingField(loc))
			continue
		}
		if seen[res.Name] {
			list = append(list, errors.NewDuplicateResource(loc))
		}
		seen[res.Name] = true

		if res.Identity != nil {
			switch res.Identity.Type {
			case identity.Number, identity.String:
			default:
				list = append(list, errors.NewInvalidIdentityType(errors.Location{Resource: res.Name, Field: "identity.type"}, string(res.Identity.Type)))
			}
		}

		if res.Storage != nil {
			if _, err := res.Storage.Strategy(loc); err != nil {
				if ce, ok := errors.As(err); ok {
					list = append(list, ce)
				}
			}
		}

		list = append(list, validateRoutes(res)...)
	}

	return list.Err()
}

func validateRoutes(res Resource) errors.ErrorList {
	var list errors.ErrorList
	if len(res.Routes) == 0 {
		return append(list, errors.NewMissingField(errors.Location{Resource: res.Name, Field: "routes"}))
	}

	seen := make(map[string]bool, len(res.Routes))
	for i, r := range res.Routes {
		def := r.Definition()
		loc := errors.Location{Resource: res.Name, Route: "[" + def.Method + "] " + def.Path, Field: "routes[" + strconv.Itoa(i) + "]"}
		switch {
		case !allowedMethods[def.Method]:
			list = append(list, errors.NewInvalidRoute(loc, "unsupported method "+strconv.Quote(r.Method)))
		case strings.TrimSpace(r.Path) == "":
			list = append(list, errors.NewInvalidRoute(loc, "path is empty"))
		case seen[loc.Route]:
			list = append(list, errors.NewInvalidRoute(loc, "route is declared more than once"))
		}
		seen[loc.Route] = true
	}
	return list
}
