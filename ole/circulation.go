package ole

import "encoding/xml"

// Circulation service response documents. The bridge reads responses through
// Node; these types describe the documents the service produces.

type PatronName struct {
	FirstName string `xml:"firstName,omitempty"`
	LastName  string `xml:"lastName,omitempty"`
}

type PatronAddress struct {
	Line1      string `xml:"line1,omitempty"`
	Line2      string `xml:"line2,omitempty"`
	City       string `xml:"city,omitempty"`
	PostalCode string `xml:"postalCode,omitempty"`
}

type PatronEmail struct {
	EmailAddress string `xml:"emailAddress,omitempty"`
}

type PatronPhone struct {
	PhoneNumber string `xml:"phoneNumber,omitempty"`
}

type LookupUser struct {
	XMLName       xml.Name       `xml:"lookupUser"`
	Message       string         `xml:"message,omitempty"`
	PatronId      string         `xml:"patronId,omitempty"`
	PatronName    *PatronName    `xml:"patronName,omitempty"`
	PatronAddress *PatronAddress `xml:"patronAddress,omitempty"`
	PatronEmail   *PatronEmail   `xml:"patronEmail,omitempty"`
	PatronPhone   *PatronPhone   `xml:"patronPhone,omitempty"`
}

type CheckOutItem struct {
	CatalogueId string `xml:"catalogueId"`
	ItemId      string `xml:"itemId"`
	Title       string `xml:"title,omitempty"`
	Author      string `xml:"author,omitempty"`
	CallNumber  string `xml:"callNumber,omitempty"`
	LoanDate    string `xml:"loanDate,omitempty"`
	DueDate     string `xml:"dueDate"`
	OverDue     string `xml:"overDue"`
}

type GetCheckedOutItems struct {
	XMLName xml.Name       `xml:"getCheckedOutItems"`
	Message string         `xml:"message,omitempty"`
	Items   []CheckOutItem `xml:"checkOutItems>checkOutItem"`
}

type FineItem struct {
	CatalogueId string `xml:"catalogueId"`
	ItemId      string `xml:"itemId,omitempty"`
	Title       string `xml:"title,omitempty"`
	Reason      string `xml:"reason,omitempty"`
	Amount      string `xml:"amount"`
	Balance     string `xml:"balance"`
}

type Fine struct {
	XMLName xml.Name   `xml:"fine"`
	Message string     `xml:"message,omitempty"`
	Items   []FineItem `xml:"fineItems>fineItem"`
}

type Hold struct {
	CatalogueId   string `xml:"catalogueId"`
	ItemId        string `xml:"itemId"`
	Title         string `xml:"title,omitempty"`
	RequestId     string `xml:"requestId"`
	RequestType   string `xml:"requestType"`
	AvailableDate string `xml:"availableDate,omitempty"`
	CreateDate    string `xml:"createDate,omitempty"`
	ExpiryDate    string `xml:"expiryDate,omitempty"`
	Priority      string `xml:"priority,omitempty"`
}

type Holds struct {
	XMLName xml.Name `xml:"holds"`
	Message string   `xml:"message,omitempty"`
	Items   []Hold   `xml:"holdItems>hold"`
}

// WriteResponse answers placeRequest and renewItem. XMLName.Local is the service name.
type WriteResponse struct {
	XMLName xml.Name
	Message string `xml:"message"`
}
