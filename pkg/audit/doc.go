// Package audit publishes authorization decision events to Kafka for an
// external audit trail. Delivery is best-effort and never influences the
// decision itself.
package audit
