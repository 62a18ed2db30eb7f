// Package dispatch implements the event fan-out registry.
//
// Consumers subscribe callbacks under event-type strings; inbound
// application frames are dispatched to every callback registered for their
// type. A panicking callback never prevents delivery to the others.
package dispatch
