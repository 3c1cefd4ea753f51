// Package storage content-addresses immutable blobs.
//
// Client uploads to an nft.storage compatible HTTP API and returns the CID the
// service reports. Memory is an offline addresser that keeps blobs in process
// and answers with the locally computed CID. Both compute the raw-codec CIDv1
// (sha2-256) of the bytes, which the client can optionally compare against the
// service response.
//
// A CID returned by Upload is treated as durable; retrievability is not checked.
package storage
