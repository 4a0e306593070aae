package driver

import (
	"strings"
	"time"

	"github.com/indexdata/olebridge/ole"
)

const unknownTitle = "unknown title"

// splitCatalogueId returns the text after the first '-' of a catalogue id
// such as "wbm-1458569". Ids without '-' are returned whole.
func splitCatalogueId(catalogueId string) string {
	_, after, found := strings.Cut(catalogueId, "-")
	if !found {
		return catalogueId
	}
	return after
}

// splitDueDate splits "YYYY-MM-DD hh:mm:ss" into its date and time parts.
func splitDueDate(dueDate string) (string, string) {
	date := dueDate
	if len(date) > 10 {
		date = date[:10]
	}
	dueTime := ""
	if len(dueDate) > 11 {
		dueTime = dueDate[11:]
	}
	return date, dueTime
}

func isAvailable(status string) bool {
	return status != ole.ItemStatusLoaned
}

func titleOrUnknown(title string) string {
	if title == "" {
		return unknownTitle
	}
	return title
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toTransaction(item *ole.Node, renew renewData) Transaction {
	dueDate, dueTime := splitDueDate(item.ChildText("dueDate"))
	dueStatus := ""
	if item.ChildText("overDue") == "true" {
		dueStatus = "overdue"
	}
	return Transaction{
		Id:        splitCatalogueId(item.ChildText("catalogueId")),
		ItemId:    item.ChildText("itemId"),
		DueDate:   dueDate,
		DueTime:   dueTime,
		DueStatus: dueStatus,
		Title:     titleOrUnknown(item.ChildText("title")),
		Renewable: renew.renewable,
		Message:   renew.message,
	}
}

func toFine(item *ole.Node) Fine {
	return Fine{
		Amount:  item.ChildText("amount"),
		Balance: item.ChildText("balance"),
		Id:      item.ChildText("catalogueId"),
	}
}

// toHold marks a hold available once its availableDate is today or earlier.
func toHold(item *ole.Node, now time.Time) Hold {
	return Hold{
		Id:        splitCatalogueId(item.ChildText("catalogueId")),
		ItemId:    item.ChildText("itemId"),
		Type:      item.ChildText("requestType"),
		Expire:    item.ChildText("expiryDate"),
		Create:    item.ChildText("createDate"),
		Position:  item.ChildText("priority"),
		Available: item.ChildText("availableDate") <= now.Format(time.DateOnly),
		ReqNum:    item.ChildText("requestId"),
		Title:     titleOrUnknown(item.ChildText("title")),
	}
}

// instanceSummary holds what every item of an instance document shares.
type instanceSummary struct {
	callNumber string
	location   string
}

func summarize(doc *ole.Node) instanceSummary {
	var s instanceSummary
	holdings := doc.Find(ole.NsInstance, "oleHoldings")
	s.callNumber = holdings.ChildText("callNumber", "number")
	var location strings.Builder
	for _, level := range doc.FindAll(ole.NsCirculation, "locationLevel") {
		location.WriteString(level.ChildText("name"))
		location.WriteString("/")
	}
	s.location = location.String()
	return s
}

func itemStatusText(item *ole.Node) string {
	return item.Child(ole.NsCirculation, "itemStatus").ChildText("fullValue")
}

func toItemStatus(id string, item *ole.Node, s instanceSummary) ItemStatus {
	status := itemStatusText(item)
	return ItemStatus{
		Id:           id,
		Availability: isAvailable(status),
		Status:       status,
		Location:     s.location,
		CallNumber:   s.callNumber,
	}
}

func toHolding(id string, item *ole.Node, s instanceSummary, patron *Patron) Holding {
	h := Holding{
		ItemStatus: toItemStatus(id, item, s),
		DueDate:    item.ChildText("dueDateTime"),
		Barcode:    item.ChildText("accessInformation", "barcode"),
		ItemId:     item.ChildText("itemIdentifier"),
		HoldType:   "hold",
	}
	if patron != nil && h.Availability {
		h.IsHoldable = true
		h.AddLink = true
	}
	return h
}

// placeHoldSucceeded reports whether a circulation message signals success.
// The service answers with a success status whether or not the request was accepted.
func placeHoldSucceeded(message string) bool {
	return strings.Contains(strings.ToLower(message), "succes")
}
