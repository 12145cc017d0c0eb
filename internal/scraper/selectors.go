package scraper

import "fmt"

// Selectors for the portal's DevExtreme grid and detail popup. The grid
// lives inside iframe[name="frame"]; the driver handed to the scraper is
// expected to be scoped to that frame already.
const (
	// PortalFrameSelector is the iframe hosting the orders grid
	PortalFrameSelector = `iframe[name="frame"]`

	selGridContent  = ".dx-datagrid-content"
	selDataRows     = "tbody tr.dx-data-row"
	selFirstDataRow = "tbody tr.dx-data-row:first-of-type"

	selPagerRoot    = ".dx-datagrid-pager .dx-pages, .dx-pager .dx-pages"
	selPageButtons  = ".dx-pages .dx-page"
	selSelectedPage = ".dx-pages .dx-page.dx-selection, .dx-pages .dx-page[aria-selected='true']"

	selDropdown = `.dx-overlay-content[role="dialog"][aria-label="Dropdown"]`
	selPopup    = "#ordercopy"

	// Login page
	selLoginEmail    = `input[name="Email"]`
	selLoginPassword = `input[name="Password"]`
	selLoginSubmit   = `button[type="submit"]`

	// Home page
	selViewOrdersFallback = `button.navicon[data-title='View Orders']`
	xpathViewOrders       = `//button[normalize-space()='View Orders']`
)

// closeSelectors are tried in order when dismissing the detail popup
var closeSelectors = []string{
	".dx-closebutton",
	`.dx-button[aria-label="Close"]`,
	".dx-icon-close",
	".dx-popup-title .dx-button",
	`.dx-overlay-content[role="dialog"] .dx-closebutton`,
}

// rowSelector addresses the i-th data row (1-based)
func rowSelector(i int) string {
	return fmt.Sprintf("tbody tr.dx-data-row:nth-of-type(%d)", i)
}

// actionButtonSelector addresses the three-dots action button of a row
func actionButtonSelector(row int) string {
	return rowSelector(row) + " .dx-dropdownbutton[title='Available actions'] .dx-dropdownbutton-action"
}

// actionItemXPath addresses a dropdown entry by its visible text
func actionItemXPath(label string) string {
	return fmt.Sprintf(`//div[contains(@class,'dx-overlay-content')]//div[contains(@class,'dx-list-item')][contains(normalize-space(.),'%s')]`, label)
}

// pageButtonXPath addresses the pager button for a page number
func pageButtonXPath(n int) string {
	return fmt.Sprintf(`//div[contains(@class,'dx-page') and normalize-space(text())='%d']`, n)
}

// selectedPageXPath addresses the pager button for a page number once selected
func selectedPageXPath(n int) string {
	return fmt.Sprintf(`//div[contains(@class,'dx-page') and (contains(@class,'dx-selection') or @aria-selected='true') and normalize-space(text())='%d']`, n)
}
