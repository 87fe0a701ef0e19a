package odrl

// Namespace is the base IRI prefix for ODRL 2.2 core terms.
const Namespace = "http://www.w3.org/ns/odrl/2/"

// EntityNamespace is the base IRI for policy entity instances (parties,
// assets, policies) minted during generation.
const EntityNamespace = "http://example.com/"

// Standard ontology IRI constants for document metadata.
const (
	// DcTitle is the Dublin Core title property.
	DcTitle = "http://purl.org/dc/terms/title"

	// DcDescription is the Dublin Core description property.
	DcDescription = "http://purl.org/dc/terms/description"

	// DcCreated is the Dublin Core created property.
	DcCreated = "http://purl.org/dc/terms/created"

	// XSDDate is the XML Schema date datatype.
	XSDDate = "http://www.w3.org/2001/XMLSchema#date"

	// XSDDateTime is the XML Schema dateTime datatype.
	XSDDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"

	// XSDInteger is the XML Schema integer datatype.
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"

	// XSDDecimal is the XML Schema decimal datatype.
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"

	// XSDDuration is the XML Schema duration datatype.
	XSDDuration = "http://www.w3.org/2001/XMLSchema#duration"

	// XSDString is the XML Schema string datatype.
	XSDString = "http://www.w3.org/2001/XMLSchema#string"
)

// Class IRIs for the policy document structure.
const (
	// ClassPolicy is the ODRL Policy class.
	ClassPolicy = Namespace + "Policy"

	// ClassSet is the most common policy subtype, a general rule collection.
	ClassSet = Namespace + "Set"

	// ClassPermission is a rule that allows an action.
	ClassPermission = Namespace + "Permission"

	// ClassProhibition is a rule that forbids an action.
	ClassProhibition = Namespace + "Prohibition"

	// ClassDuty is a rule that requires an action (ODRL obligation).
	ClassDuty = Namespace + "Duty"

	// ClassConstraint restricts a rule by operand/operator/value.
	ClassConstraint = Namespace + "Constraint"
)

// Property IRIs used when serializing documents.
const (
	PropUID          = Namespace + "uid"
	PropPermission   = Namespace + "permission"
	PropProhibition  = Namespace + "prohibition"
	PropObligation   = Namespace + "obligation"
	PropAction       = Namespace + "action"
	PropTarget       = Namespace + "target"
	PropAssignee     = Namespace + "assignee"
	PropAssigner     = Namespace + "assigner"
	PropConstraint   = Namespace + "constraint"
	PropLeftOperand  = Namespace + "leftOperand"
	PropOperator     = Namespace + "operator"
	PropRightOperand = Namespace + "rightOperand"
)
