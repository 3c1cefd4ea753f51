// Package testsupport provides configuration builders and in-memory fakes of
// the chain node, identifier deriver and storage service shared by package
// tests.
package testsupport
