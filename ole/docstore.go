package ole

import "encoding/xml"

// Docstore instanceDetails document.

type InstanceCollection struct {
	XMLName  xml.Name   `xml:"http://ole.kuali.org/standards/ole-instance instanceCollection"`
	Instance []Instance `xml:"http://ole.kuali.org/standards/ole-instance instance"`
}

type Instance struct {
	InstanceIdentifier string        `xml:"http://ole.kuali.org/standards/ole-instance instanceIdentifier"`
	ResourceIdentifier string        `xml:"http://ole.kuali.org/standards/ole-instance resourceIdentifier"`
	OleHoldings        []OleHoldings `xml:"http://ole.kuali.org/standards/ole-instance oleHoldings"`
	Items              Items         `xml:"http://ole.kuali.org/standards/ole-instance items"`
}

type OleHoldings struct {
	HoldingsIdentifier string     `xml:"http://ole.kuali.org/standards/ole-instance holdingsIdentifier"`
	CallNumber         CallNumber `xml:"http://ole.kuali.org/standards/ole-instance callNumber"`
	Location           Location   `xml:"http://ole.kuali.org/standards/ole-instance location"`
}

type CallNumber struct {
	Prefix string `xml:"http://ole.kuali.org/standards/ole-instance prefix,omitempty"`
	Number string `xml:"http://ole.kuali.org/standards/ole-instance number"`
}

type Location struct {
	LocationLevel []LocationLevel `xml:"http://ole.kuali.org/standards/ole-instance-circulation locationLevel"`
}

type LocationLevel struct {
	Name  string `xml:"http://ole.kuali.org/standards/ole-instance name"`
	Level string `xml:"http://ole.kuali.org/standards/ole-instance level,omitempty"`
}

type Items struct {
	Item []Item `xml:"http://ole.kuali.org/standards/ole-instance item"`
}

type Item struct {
	ItemIdentifier    string            `xml:"http://ole.kuali.org/standards/ole-instance itemIdentifier"`
	AccessInformation AccessInformation `xml:"http://ole.kuali.org/standards/ole-instance accessInformation"`
	ItemStatus        ItemStatus        `xml:"http://ole.kuali.org/standards/ole-instance-circulation itemStatus"`
	DueDateTime       string            `xml:"dueDateTime,omitempty"`
}

type AccessInformation struct {
	Barcode string `xml:"http://ole.kuali.org/standards/ole-instance barcode"`
}

type ItemStatus struct {
	CodeValue string `xml:"codeValue,omitempty"`
	FullValue string `xml:"fullValue"`
}
