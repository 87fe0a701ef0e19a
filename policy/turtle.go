package policy

import (
	"fmt"
	"strings"

	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// turtlePrefixes are the namespace prefixes emitted at the top of every
// serialized document, in a fixed order so output is deterministic.
var turtlePrefixes = []struct{ prefix, iri string }{
	{"odrl", odrl.Namespace},
	{"rdf", "http://www.w3.org/1999/02/22-rdf-syntax-ns#"},
	{"rdfs", "http://www.w3.org/2000/01/rdf-schema#"},
	{"xsd", "http://www.w3.org/2001/XMLSchema#"},
	{"dct", "http://purl.org/dc/terms/"},
	{"ex", odrl.EntityNamespace},
}

// curie compacts a full IRI to its prefixed name under the declared prefixes.
// IRIs outside every declared namespace render in angle brackets.
func curie(iri string) string {
	for _, p := range turtlePrefixes {
		if strings.HasPrefix(iri, p.iri) {
			return p.prefix + ":" + strings.TrimPrefix(iri, p.iri)
		}
	}
	return "<" + iri + ">"
}

// Turtle serializes the document to ODRL Turtle. Serialization is a pure
// function of the document, so re-serializing an unchanged draft yields
// byte-identical text.
func (d *Document) Turtle() string {
	var sb strings.Builder

	for _, p := range turtlePrefixes {
		fmt.Fprintf(&sb, "@prefix %s: <%s> .\n", p.prefix, p.iri)
	}
	sb.WriteString("\n")

	uid := LocalName(d.UID)
	fmt.Fprintf(&sb, "ex:%s a %s, %s ;\n", uid, curie(odrl.ClassPolicy), curie(odrl.ClassSet))
	fmt.Fprintf(&sb, "    %s ex:%s ;\n", curie(odrl.PropUID), uid)
	if d.Title != "" {
		fmt.Fprintf(&sb, "    %s %s ;\n", curie(odrl.DcTitle), turtleString(d.Title))
	}
	if d.Description != "" {
		fmt.Fprintf(&sb, "    %s %s ;\n", curie(odrl.DcDescription), turtleString(d.Description))
	}
	if !d.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "    %s \"%s\"^^%s ;\n", curie(odrl.DcCreated),
			d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), curie(odrl.XSDDateTime))
	}

	for i, rule := range d.Rules {
		writeRuleTurtle(&sb, rule)
		if i < len(d.Rules)-1 {
			sb.WriteString(" ;\n")
		} else {
			sb.WriteString(" .\n")
		}
	}
	if len(d.Rules) == 0 {
		// Trailing terminator when the document carries only metadata. The
		// shapes checker will flag the missing rule, not the serializer.
		sb.WriteString("    .\n")
	}

	return sb.String()
}

func writeRuleTurtle(sb *strings.Builder, rule Rule) {
	var prop, class string
	switch rule.Kind {
	case KindPermission:
		prop, class = curie(odrl.PropPermission), curie(odrl.ClassPermission)
	case KindProhibition:
		prop, class = curie(odrl.PropProhibition), curie(odrl.ClassProhibition)
	case KindObligation:
		prop, class = curie(odrl.PropObligation), curie(odrl.ClassDuty)
	default:
		prop, class = curie(odrl.PropPermission), curie(odrl.ClassPermission)
	}

	fmt.Fprintf(sb, "    %s [\n", prop)
	fmt.Fprintf(sb, "        a %s ;\n", class)
	fmt.Fprintf(sb, "        %s odrl:%s ;\n", curie(odrl.PropAction), rule.Action)
	fmt.Fprintf(sb, "        %s ex:%s ;\n", curie(odrl.PropTarget), LocalName(rule.Target))
	if rule.Assignee != "" {
		fmt.Fprintf(sb, "        %s ex:%s ;\n", curie(odrl.PropAssignee), LocalName(rule.Assignee))
	}
	if rule.Assigner != "" {
		fmt.Fprintf(sb, "        %s ex:%s ;\n", curie(odrl.PropAssigner), LocalName(rule.Assigner))
	}
	for _, c := range rule.Constraints {
		fmt.Fprintf(sb, "        %s [\n", curie(odrl.PropConstraint))
		fmt.Fprintf(sb, "            a %s ;\n", curie(odrl.ClassConstraint))
		fmt.Fprintf(sb, "            %s odrl:%s ;\n", curie(odrl.PropLeftOperand), c.LeftOperand)
		fmt.Fprintf(sb, "            %s odrl:%s ;\n", curie(odrl.PropOperator), c.Operator)
		fmt.Fprintf(sb, "            %s %s ;\n", curie(odrl.PropRightOperand), turtleLiteral(c))
		sb.WriteString("        ] ;\n")
	}
	sb.WriteString("    ]")
}

// turtleLiteral renders a constraint value with its datatype annotation.
func turtleLiteral(c Constraint) string {
	if c.Datatype == "" {
		return turtleString(c.RightOperand)
	}
	return fmt.Sprintf("%s^^%s", turtleString(c.RightOperand), curie(c.Datatype))
}

func turtleString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
