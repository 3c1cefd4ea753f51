// Package contracts resolves the deployed mint contract (address and ABI) for a
// chain from a hardhat-deploy style export keyed by chain id, then network name,
// then contract name.
package contracts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"vidmint/internal/services"
)

//go:embed contractInfo.json
var embeddedRegistry []byte

// Contract is a deployed contract on one network.
type Contract struct {
	Name    string
	Network string
	ChainID int64
	Address common.Address
	ABI     abi.ABI
}

type exportedContract struct {
	Address string          `json:"address"`
	ABI     json.RawMessage `json:"abi"`
}

type exportedNetwork struct {
	Contracts map[string]exportedContract `json:"contracts"`
}

// Registry maps chain ids to the networks and contracts deployed on them.
type Registry struct {
	chains map[int64]map[string]exportedNetwork
}

// Load returns the registry stored at path, or the embedded registry when path is blank.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(embeddedRegistry)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contract registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes a registry export.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]map[string]exportedNetwork
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode contract registry: %w", err)
	}
	reg := &Registry{chains: make(map[int64]map[string]exportedNetwork, len(raw))}
	for key, networks := range raw {
		chainID, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("contract registry: chain id %q: %w", key, err)
		}
		reg.chains[chainID] = networks
	}
	return reg, nil
}

// ChainIDs lists the supported chain ids in ascending order.
func (r *Registry) ChainIDs() []int64 {
	ids := make([]int64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Lookup resolves the named contract on chainID. When a chain has several
// network entries the first by name is used.
func (r *Registry) Lookup(chainID int64, name string) (Contract, error) {
	networks, ok := r.chains[chainID]
	if !ok || len(networks) == 0 {
		return Contract{}, services.Wrap(
			services.ErrConfiguration, "", "contract lookup",
			fmt.Sprintf("chain %d is not supported, switch to one of the supported networks %v", chainID, r.ChainIDs()),
			nil,
		)
	}
	names := make([]string, 0, len(networks))
	for networkName := range networks {
		names = append(names, networkName)
	}
	sort.Strings(names)
	networkName := names[0]

	entry, ok := networks[networkName].Contracts[name]
	if !ok {
		return Contract{}, services.Wrap(
			services.ErrConfiguration, "", "contract lookup",
			fmt.Sprintf("contract %s is not deployed on %s (chain %d)", name, networkName, chainID),
			nil,
		)
	}
	if !common.IsHexAddress(entry.Address) {
		return Contract{}, services.Wrap(
			services.ErrConfiguration, "", "contract lookup",
			fmt.Sprintf("contract %s on %s has invalid address %q", name, networkName, entry.Address),
			nil,
		)
	}
	parsed, err := abi.JSON(strings.NewReader(string(entry.ABI)))
	if err != nil {
		return Contract{}, services.Wrap(services.ErrConfiguration, "", "contract lookup", "parse abi for "+name, err)
	}
	return Contract{
		Name:    name,
		Network: networkName,
		ChainID: chainID,
		Address: common.HexToAddress(entry.Address),
		ABI:     parsed,
	}, nil
}
