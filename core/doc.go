// Package core defines the shared domain types of CityMesh: citizens with
// needs and personality traits, the Action interface agents execute against
// their citizen, the LocalState snapshot handed to decision making, and the
// DecisionProvider strategy interface. All concurrency-aware components
// (bus, interaction, runner, coordinator) depend on core; core depends on
// nothing but the standard library and uuid.
package core
