// Package document models a rule configuration: global rules, per-field rule
// applications and rule groups. Documents may be written as JSON or YAML; both
// go through the YAML decoder so each declaration keeps its source line.
//
//	doc, err := document.NewParser().Parse("rules.json")
//	if err != nil {
//	    return err
//	}
//	plan, err := compiler.Compile(doc, compiler.DefaultOptions())
package document
