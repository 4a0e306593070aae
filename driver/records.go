package driver

import "github.com/indexdata/olebridge/config"

type Patron struct {
	Id          string  `json:"id"`
	FirstName   string  `json:"firstname"`
	LastName    string  `json:"lastname"`
	CatUsername string  `json:"cat_username"`
	CatPassword string  `json:"cat_password"`
	Email       *string `json:"email"`
	Major       *string `json:"major"`
	College     *string `json:"college"`
}

type Profile struct {
	Patron
	Address1 string  `json:"address1"`
	Address2 *string `json:"address2"`
	Zip      string  `json:"zip"`
	Phone    string  `json:"phone"`
	Group    string  `json:"group"`
}

type Transaction struct {
	Id              string `json:"id"`
	ItemId          string `json:"item_id"`
	DueDate         string `json:"duedate"`
	DueTime         string `json:"dueTime"`
	DueStatus       string `json:"dueStatus"`
	Volume          string `json:"volume"`
	PublicationYear string `json:"publication_year"`
	Title           string `json:"title"`
	Renewable       bool   `json:"renewable"`
	Message         string `json:"message"`
}

type Fine struct {
	Amount     string `json:"amount"`
	Fine       string `json:"fine"`
	Balance    string `json:"balance"`
	CreateDate string `json:"createdate"`
	Checkout   string `json:"checkout"`
	DueDate    string `json:"duedate"`
	Id         string `json:"id"`
}

type Hold struct {
	Id              string `json:"id"`
	ItemId          string `json:"item_id"`
	Type            string `json:"type"`
	Location        string `json:"location"`
	Expire          string `json:"expire"`
	Create          string `json:"create"`
	Position        string `json:"position"`
	Available       bool   `json:"available"`
	ReqNum          string `json:"reqnum"`
	Volume          string `json:"volume"`
	PublicationYear string `json:"publication_year"`
	Title           string `json:"title"`
}

type ItemStatus struct {
	Id           string `json:"id"`
	Availability bool   `json:"availability"`
	Status       string `json:"status"`
	Location     string `json:"location"`
	Reserve      string `json:"reserve"`
	CallNumber   string `json:"callnumber"`
}

type Holding struct {
	ItemStatus
	DueDate        string `json:"duedate"`
	ReturnDate     string `json:"returnDate"`
	Number         string `json:"number"`
	RequestsPlaced string `json:"requests_placed"`
	Barcode        string `json:"barcode"`
	Notes          string `json:"notes"`
	Summary        string `json:"summary"`
	ItemId         string `json:"item_id"`
	IsHoldable     bool   `json:"is_holdable"`
	HoldType       string `json:"holdtype"`
	AddLink        bool   `json:"addLink"`
	HoldOverride   string `json:"holdOverride"`
}

// HoldDetails identifies the item to place a hold on. Id is the bib id.
type HoldDetails struct {
	Patron         Patron `json:"patron"`
	Id             string `json:"id"`
	Barcode        string `json:"barcode"`
	PickUpLocation string `json:"pickUpLocation,omitempty"`
}

type HoldResult struct {
	Success    bool   `json:"success"`
	SysMessage string `json:"sysMessage"`
}

// RenewDetails lists "<barcode>,<id>" strings as produced by GetRenewDetails.
type RenewDetails struct {
	Patron  Patron   `json:"patron"`
	Details []string `json:"details"`
}

type RenewItemResult struct {
	Success    bool    `json:"success"`
	NewDate    *string `json:"new_date"`
	ItemId     string  `json:"item_id"`
	SysMessage string  `json:"sysMessage"`
}

type RenewResult struct {
	Details map[string]RenewItemResult `json:"details"`
}

type PickUpLocation = config.PickUpLocation

type renewData struct {
	message   string
	renewable bool
}
