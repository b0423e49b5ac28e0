package tui

// SwitchScreenMsg requests a screen change
type SwitchScreenMsg struct {
	Screen Screen
}

// RefreshDataMsg requests data refresh
type RefreshDataMsg struct{}

// ErrorMsg carries error information
type ErrorMsg struct {
	Err error
}

// OpenInvoiceMsg switches to the invoices screen and opens the invoice
type OpenInvoiceMsg struct {
	ID     string
	Notice string
}
