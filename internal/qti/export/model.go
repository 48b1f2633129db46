package export

import "encoding/xml"

// --- manifest ---

type imsManifest struct {
	XMLName    xml.Name      `xml:"manifest"`
	Xmlns      string        `xml:"xmlns,attr"`
	Identifier string        `xml:"identifier,attr"`
	Title      string        `xml:"metadata>title,omitempty"`
	Resources  []imsResource `xml:"resources>resource"`
}

type imsResource struct {
	Identifier string    `xml:"identifier,attr"`
	Type       string    `xml:"type,attr"`
	Href       string    `xml:"href,attr"`
	Files      []imsFile `xml:"file"`
}

type imsFile struct {
	Href string `xml:"href,attr"`
}

// --- item ---

type assessmentItem struct {
	XMLName       xml.Name             `xml:"assessmentItem"`
	Xmlns         string               `xml:"xmlns,attr"`
	Identifier    string               `xml:"identifier,attr"`
	Title         string               `xml:"title,attr"`
	Adaptive      bool                 `xml:"adaptive,attr"`
	TimeDependent bool                 `xml:"timeDependent,attr"`
	Response      *responseDeclaration `xml:"responseDeclaration"`
	Outcome       outcomeDeclaration   `xml:"outcomeDeclaration"`
	Body          itemBody             `xml:"itemBody"`
	Processing    *responseProcessing  `xml:"responseProcessing,omitempty"`
}

type responseDeclaration struct {
	Identifier  string           `xml:"identifier,attr"`
	Cardinality string           `xml:"cardinality,attr"`
	BaseType    string           `xml:"baseType,attr"`
	Correct     *correctResponse `xml:"correctResponse,omitempty"`
}

type correctResponse struct {
	Values []string `xml:"value"`
}

type outcomeDeclaration struct {
	Identifier  string `xml:"identifier,attr"`
	Cardinality string `xml:"cardinality,attr"`
	BaseType    string `xml:"baseType,attr"`
}

type responseProcessing struct {
	Template string `xml:"template,attr"`
}

// itemBody holds paragraphs and one interaction, in document order.
type itemBody struct {
	Content []any
}

type para struct {
	XMLName xml.Name `xml:"p"`
	Text    string   `xml:",chardata"`
	Img     *imgTag  `xml:"img,omitempty"`
}

type imgTag struct {
	Src string `xml:"src,attr"`
	Alt string `xml:"alt,attr"`
}

type choiceInteraction struct {
	XMLName            xml.Name       `xml:"choiceInteraction"`
	ResponseIdentifier string         `xml:"responseIdentifier,attr"`
	Shuffle            bool           `xml:"shuffle,attr"`
	MaxChoices         int            `xml:"maxChoices,attr"`
	Choices            []simpleChoice `xml:"simpleChoice"`
}

type simpleChoice struct {
	Identifier string  `xml:"identifier,attr"`
	Text       string  `xml:",chardata"`
	Img        *imgTag `xml:"img,omitempty"`
}

type textEntryInteraction struct {
	XMLName            xml.Name `xml:"textEntryInteraction"`
	ResponseIdentifier string   `xml:"responseIdentifier,attr"`
}

type extendedTextInteraction struct {
	XMLName            xml.Name `xml:"extendedTextInteraction"`
	ResponseIdentifier string   `xml:"responseIdentifier,attr"`
}
