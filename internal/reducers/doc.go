// Package reducers holds stock reducers for common UI state: boolean toggles
// and text inputs whose writes are debounced through the services package.
package reducers
