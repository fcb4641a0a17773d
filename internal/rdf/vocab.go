package rdf

// Namespace IRIs for the standard vocabularies.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
	OWLNamespace  = "http://www.w3.org/2002/07/owl#"
)

// Frequently used IRIs.
const (
	RDFType       IRI = RDFNamespace + "type"
	RDFLangString IRI = RDFNamespace + "langString"

	RDFSSubClassOf IRI = RDFSNamespace + "subClassOf"
	RDFSLabel      IRI = RDFSNamespace + "label"

	OWLSameAs IRI = OWLNamespace + "sameAs"
)

// XSD datatypes.
const (
	XSDString             IRI = XSDNamespace + "string"
	XSDBoolean            IRI = XSDNamespace + "boolean"
	XSDInteger            IRI = XSDNamespace + "integer"
	XSDInt                IRI = XSDNamespace + "int"
	XSDLong               IRI = XSDNamespace + "long"
	XSDShort              IRI = XSDNamespace + "short"
	XSDByte               IRI = XSDNamespace + "byte"
	XSDNonNegativeInteger IRI = XSDNamespace + "nonNegativeInteger"
	XSDPositiveInteger    IRI = XSDNamespace + "positiveInteger"
	XSDDecimal            IRI = XSDNamespace + "decimal"
	XSDDouble             IRI = XSDNamespace + "double"
	XSDFloat              IRI = XSDNamespace + "float"
	XSDDateTime           IRI = XSDNamespace + "dateTime"
)

var integerTypes = map[IRI]bool{
	XSDInteger:            true,
	XSDInt:                true,
	XSDLong:               true,
	XSDShort:              true,
	XSDByte:               true,
	XSDNonNegativeInteger: true,
	XSDPositiveInteger:    true,
}

var numericTypes = map[IRI]bool{
	XSDInteger:            true,
	XSDInt:                true,
	XSDLong:               true,
	XSDShort:              true,
	XSDByte:               true,
	XSDNonNegativeInteger: true,
	XSDPositiveInteger:    true,
	XSDDecimal:            true,
	XSDDouble:             true,
	XSDFloat:              true,
}

// StandardPrefixes returns a fresh prefix map with the rdf, rdfs, xsd and owl
// namespaces. Callers own the returned map.
func StandardPrefixes() map[string]string {
	return map[string]string{
		"rdf":  RDFNamespace,
		"rdfs": RDFSNamespace,
		"xsd":  XSDNamespace,
		"owl":  OWLNamespace,
	}
}
