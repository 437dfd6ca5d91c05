package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Inline-callback data formats. The web app and the confirmation flow
// agreed on these strings, so the encoding is part of the wire contract:
//
//	confirm_order_<queryId>_<orderIdOrNoDb>
//	change_address_<chatId>
const (
	confirmPrefix       = "confirm_order_"
	changeAddressPrefix = "change_address_"

	// noDBOrderRef marks a confirmation for an order that could not be
	// durably recorded (database was unreachable at submission time).
	noDBOrderRef = "nodb"
)

// ConfirmCallbackData encodes the confirm-order callback. An orderID of 0
// produces the nodb placeholder.
func ConfirmCallbackData(queryID string, orderID int64) string {
	ref := noDBOrderRef
	if orderID > 0 {
		ref = strconv.FormatInt(orderID, 10)
	}
	return confirmPrefix + queryID + "_" + ref
}

// ParseConfirmCallback decodes confirm-order callback data. The returned
// orderID is 0 for the nodb placeholder. The query id may itself contain
// underscores, so the order reference is the part after the last one.
func ParseConfirmCallback(data string) (queryID string, orderID int64, ok bool) {
	rest, found := strings.CutPrefix(data, confirmPrefix)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 || idx == len(rest)-1 {
		return "", 0, false
	}
	queryID = rest[:idx]
	ref := rest[idx+1:]
	if ref == noDBOrderRef {
		return queryID, 0, true
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return queryID, id, true
}

// ChangeAddressCallbackData encodes the change-address callback.
func ChangeAddressCallbackData(chatID int64) string {
	return fmt.Sprintf("%s%d", changeAddressPrefix, chatID)
}

// ParseChangeAddressCallback decodes change-address callback data.
func ParseChangeAddressCallback(data string) (chatID int64, ok bool) {
	rest, found := strings.CutPrefix(data, changeAddressPrefix)
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
