package ole

// Namespaces used by the docstore instance documents.
const (
	NsInstance    = "http://ole.kuali.org/standards/ole-instance"
	NsCirculation = "http://ole.kuali.org/standards/ole-instance-circulation"
)

// Circulation service names, passed in the service query parameter.
const (
	ServiceLookupUser         = "lookupUser"
	ServiceGetCheckedOutItems = "getCheckedOutItems"
	ServiceFine               = "fine"
	ServiceHolds              = "holds"
	ServicePlaceRequest       = "placeRequest"
	ServiceRenewItem          = "renewItem"
)

// Docstore actions, passed in the docAction query parameter.
const (
	DocActionInstanceDetails = "instanceDetails"
)

const (
	RequestTypePageHold = "Page/Hold Request"
	ItemStatusLoaned    = "LOANED"
	DefaultOperatorId   = "API"
)
