// Package app wires a configured moodlink process together.
//
// Init builds the link manager, the UI dispatcher and the role's task:
//
//   - receiver: wait for the link, decode samples, aggregate, classify and post
//     a recommendation per sample.
//   - sender: read the sensor source, encode each sample and write it to the link.
//
// Every link state change is also posted to the UI as status text. The returned
// Handle owns all of it until Shutdown.
package app
