// Package deadletter publishes documents that could not be uploaded, so a
// later run or an operator can pick them up.
//
// Two sinks are provided: a JSON-lines file and a Kafka topic. Open picks one
// from a target string.
package deadletter
