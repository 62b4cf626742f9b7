package codegen

// generatedHeader opens the docblock of every generated file
const generatedHeader = "AUTO-GENERATED by wpkgen. Do not edit between the WPK markers."

// ControllerDocblock lists the origin, schema and routes of a controller
func ControllerDocblock(origin string, res ResourcePlan) []string {
	lines := []string{
		"Source: " + origin + " → resources." + res.Name,
	}
	if res.SchemaKey != "" {
		schema := "Schema: " + res.SchemaKey
		if res.SchemaProvenance != "" {
			schema += " (" + res.SchemaProvenance + ")"
		}
		lines = append(lines, schema)
	}
	for _, r := range res.Routes {
		lines = append(lines, "Route: "+routeLabel(r.Definition.Method, r.Definition.Path))
	}
	return lines
}

// BaseControllerDocblock describes the shared abstract controller
func BaseControllerDocblock(origin, sanitizedNamespace string) []string {
	return []string{"Source: " + origin + " → resources (namespace: " + sanitizedNamespace + ")"}
}

// IndexDocblock describes the class map index
func IndexDocblock(origin string) []string {
	return []string{"Source: " + origin + " → php/index"}
}
