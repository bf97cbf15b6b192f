package selection

import "github.com/airbnb/viaduct/schema"

// ResolveArgValue converts a field-argument literal into a plain Go value,
// substituting any `$name` variable reference (see VariableRef) against
// vars and recursing into list/object literals. Used by the planner to
// build a resolver's argument map from a bound RawSelectionSet.
func ResolveArgValue(l schema.Literal, vars VariableEnv) interface{} {
	if l.Kind() == schema.KindEnum {
		if name, ok := l.AsString(); ok {
			if trimmed, isVar := trimVariableRef(name); isVar {
				return vars[trimmed]
			}
			return name
		}
	}
	switch l.Kind() {
	case schema.KindNull:
		return nil
	case schema.KindBool:
		b, _ := l.AsBool()
		return b
	case schema.KindString:
		s, _ := l.AsString()
		return s
	case schema.KindInt:
		i, _ := l.AsBigInt()
		return i
	case schema.KindFloat:
		f, _ := l.AsBigFloat()
		return f
	case schema.KindList:
		items, _ := l.Items()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = ResolveArgValue(item, vars)
		}
		return out
	case schema.KindObject:
		fields, _ := l.Fields()
		out := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			out[f.Name] = ResolveArgValue(f.Value, vars)
		}
		return out
	}
	return nil
}

// ResolveArgs converts a field's full argument list into a plain Go map,
// per ResolveArgValue.
func ResolveArgs(args []schema.ObjectField, vars VariableEnv) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for _, a := range args {
		out[a.Name] = ResolveArgValue(a.Value, vars)
	}
	return out
}
