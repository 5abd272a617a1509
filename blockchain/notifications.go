// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"github.com/project-illium/idxd/types"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various chain events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// NTBlockConnected indicates the associated block was connected to
	// its lineage's witness tree.
	NTBlockConnected NotificationType = iota

	// NTBestTipChanged indicates a lineage has a new best tip.
	NTBestTipChanged

	// NTCanonicityUpdate indicates a canonicity update was committed.
	NTCanonicityUpdate

	// NTFinalityViolation indicates a block was rejected because it
	// would orphan a canonical block.
	NTFinalityViolation
)

// notificationTypeStrings is a map of notification types back to their constant
// names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTBlockConnected:    "NTBlockConnected",
	NTBestTipChanged:    "NTBestTipChanged",
	NTCanonicityUpdate:  "NTCanonicityUpdate",
	NTFinalityViolation: "NTFinalityViolation",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// BestTipChange is the data of an NTBestTipChanged notification.
type BestTipChange struct {
	GenesisStateHash types.ID
	OldTip           types.ID
	NewTip           types.ID
	Height           uint32
	// Reorg is true if the new tip does not extend the old one.
	Reorg bool
}

// Notification defines notification that is sent to the caller via the callback
// function provided during the call to Subscribe and consists of a notification type
// as well as associated data that depends on the type as follows:
//   - NTBlockConnected:    *blocks.Block
//   - NTBestTipChanged:    *BestTipChange
//   - NTCanonicityUpdate:  types.CanonicityUpdate
//   - NTFinalityViolation: FinalityViolationError
type Notification struct {
	Type NotificationType
	Data interface{}
}

// Subscribe to blockchain notifications. Registers a callback to be executed
// when various events take place. See the documentation on Notification and
// NotificationType for details on the types and contents of notifications.
func (b *Blockchain) Subscribe(callback NotificationCallback) {
	b.notificationsLock.Lock()
	b.notifications = append(b.notifications, callback)
	b.notificationsLock.Unlock()
}

// sendNotification sends a notification with the passed type and data to
// every subscriber. Callbacks run in their own goroutine.
func (b *Blockchain) sendNotification(typ NotificationType, data interface{}) {
	// Generate and send the notification.
	n := Notification{Type: typ, Data: data}
	b.notificationsLock.RLock()
	for _, callback := range b.notifications {
		go callback(&n)
	}
	b.notificationsLock.RUnlock()
}
