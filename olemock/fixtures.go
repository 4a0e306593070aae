package olemock

import (
	"strings"
	"time"

	"github.com/indexdata/olebridge/ole"
)

const dateLayout = "2006-01-02"
const dateTimeLayout = "2006-01-02 15:04:05"

func lookupUser(patronId string) *ole.LookupUser {
	return &ole.LookupUser{
		Message:  "Successfully found the patron",
		PatronId: patronId,
		PatronName: &ole.PatronName{
			FirstName: "Ada",
			LastName:  "Lovelace",
		},
		PatronAddress: &ole.PatronAddress{
			Line1:      "12 St James's Square",
			City:       "London",
			PostalCode: "SW1Y 4JH",
		},
		PatronEmail: &ole.PatronEmail{EmailAddress: "ada@example.org"},
		PatronPhone: &ole.PatronPhone{PhoneNumber: "555-0100"},
	}
}

func checkedOutItems(now time.Time) *ole.GetCheckedOutItems {
	return &ole.GetCheckedOutItems{
		Message: "Successfully retrieved",
		Items: []ole.CheckOutItem{
			{
				CatalogueId: "wbm-1458569",
				ItemId:      "33165972443029224",
				Title:       "The Go Programming Language",
				LoanDate:    now.AddDate(0, 0, -7).Format(dateTimeLayout),
				DueDate:     now.AddDate(0, 0, 14).Format(dateLayout) + " 23:59:00",
				OverDue:     "false",
			},
			{
				CatalogueId: "wbm-1458570",
				ItemId:      "005123641675530699",
				LoanDate:    now.AddDate(0, -2, 0).Format(dateTimeLayout),
				DueDate:     now.AddDate(0, 0, -3).Format(dateLayout) + " 23:59:00",
				OverDue:     "true",
			},
		},
	}
}

func fines() *ole.Fine {
	return &ole.Fine{
		Message: "Successfully retrieved",
		Items: []ole.FineItem{
			{CatalogueId: "wbm-1458570", ItemId: "005123641675530699", Reason: "Overdue", Amount: "2.50", Balance: "2.50"},
			{CatalogueId: "wbm-1458571", Reason: "Replacement Fee", Amount: "40.00", Balance: "15.00"},
		},
	}
}

func holds(now time.Time) *ole.Holds {
	return &ole.Holds{
		Message: "Successfully retrieved",
		Items: []ole.Hold{
			{
				CatalogueId:   "wbm-1458569",
				ItemId:        "33165972443029224",
				Title:         "The Go Programming Language",
				RequestId:     "1001",
				RequestType:   ole.RequestTypePageHold,
				AvailableDate: now.AddDate(0, 0, -1).Format(dateLayout),
				CreateDate:    now.AddDate(0, 0, -10).Format(dateLayout),
				ExpiryDate:    now.AddDate(0, 1, 0).Format(dateLayout),
				Priority:      "1",
			},
			{
				CatalogueId:   "wbm-1458572",
				ItemId:        "9860950159307095",
				RequestId:     "1002",
				RequestType:   "Recall/Hold Request",
				AvailableDate: now.AddDate(0, 0, 7).Format(dateLayout),
				CreateDate:    now.AddDate(0, 0, -2).Format(dateLayout),
				ExpiryDate:    now.AddDate(0, 1, 0).Format(dateLayout),
				Priority:      "3",
			},
		},
	}
}

func placeRequest(itemBarcode string, requestType string) *ole.WriteResponse {
	res := &ole.WriteResponse{}
	res.XMLName.Local = ole.ServicePlaceRequest
	switch {
	case itemBarcode == "":
		res.Message = "Item barcode is required"
	case requestType == "":
		res.Message = "Request type is required"
	case strings.HasPrefix(itemBarcode, failPrefix):
		res.Message = "Item is not available for request: " + itemBarcode
	default:
		res.Message = "Request raised successfully"
	}
	return res
}

func renewItem(itemBarcode string) *ole.WriteResponse {
	res := &ole.WriteResponse{}
	res.XMLName.Local = ole.ServiceRenewItem
	if itemBarcode == "" || strings.HasPrefix(itemBarcode, failPrefix) {
		res.Message = "The item has been renewed the maximum (1) number of times. (OR) "
	} else {
		res.Message = "Item renewed successfully"
	}
	return res
}

// instanceDetails returns one instance with an available and a loaned item.
// Unknown bib ids give an empty collection.
func instanceDetails(bibId string, now time.Time) *ole.InstanceCollection {
	collection := &ole.InstanceCollection{}
	if bibId == "" || strings.HasPrefix(bibId, failPrefix) {
		return collection
	}
	collection.Instance = []ole.Instance{
		{
			InstanceIdentifier: "who-" + bibId,
			ResourceIdentifier: bibId,
			OleHoldings: []ole.OleHoldings{
				{
					HoldingsIdentifier: "who-h-" + bibId,
					CallNumber:         ole.CallNumber{Number: "QA76.73.G63 D66 2015"},
					Location: ole.Location{
						LocationLevel: []ole.LocationLevel{
							{Name: "UC", Level: "Institution"},
							{Name: "MAIN", Level: "Library"},
						},
					},
				},
			},
			Items: ole.Items{
				Item: []ole.Item{
					{
						ItemIdentifier:    "wio-" + bibId + "-1",
						AccessInformation: ole.AccessInformation{Barcode: "33165972443029224"},
						ItemStatus:        ole.ItemStatus{CodeValue: "AVAILABLE", FullValue: "AVAILABLE"},
					},
					{
						ItemIdentifier:    "wio-" + bibId + "-2",
						AccessInformation: ole.AccessInformation{Barcode: "005123641675530699"},
						ItemStatus:        ole.ItemStatus{CodeValue: "LOANED", FullValue: ole.ItemStatusLoaned},
						DueDateTime:       now.AddDate(0, 0, 14).Format(dateTimeLayout),
					},
				},
			},
		},
	}
	return collection
}
