package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sys/unix"

	"vidmint/internal/chain"
	"vidmint/internal/contracts"
)

const httpCheckTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckContract verifies the contract registry resolves contractName on chainID.
func CheckContract(registryPath string, chainID int64, contractName string) Result {
	const name = "Contract"

	registry, err := contracts.Load(registryPath)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	contract, err := registry.Lookup(chainID, contractName)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s on %s at %s", contract.Name, contract.Network, contract.Address.Hex())}
}

// CheckRPC verifies the node is reachable and reports the expected chain id.
func CheckRPC(ctx context.Context, rpcURL string, chainID int64, timeout time.Duration) Result {
	const name = "Chain node"

	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return Result{Name: name, Detail: "missing rpc url"}
	}
	if timeout <= 0 {
		timeout = httpCheckTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := ethclient.DialContext(checkCtx, rpcURL)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("dial failed (%s)", summarizeNetError(err))}
	}
	defer client.Close()

	id, err := client.ChainID(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("chain id query failed (%s)", summarizeNetError(err))}
	}
	if !id.IsInt64() || id.Int64() != chainID {
		return Result{Name: name, Detail: fmt.Sprintf("node reports chain %s, expected %d", id, chainID)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("chain %d at %s", chainID, rpcURL)}
}

// CheckSigner verifies the private key parses and reports its address.
func CheckSigner(privateKey string) Result {
	const name = "Signer"

	if strings.TrimSpace(privateKey) == "" {
		return Result{Name: name, Detail: "private key missing (set chain.private_key or VIDMINT_PRIVATE_KEY)"}
	}
	signer, err := chain.ParseSigner(privateKey)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: signer.Address().Hex()}
}

// CheckStorage verifies the storage service is reachable and accepts the token.
func CheckStorage(ctx context.Context, baseURL, apiToken string) Result {
	const name = "Storage"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiToken) == "" {
		return Result{Name: name, Detail: "missing api token (set storage.api_token or NFT_STORAGE_API_KEY)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, httpCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiToken))

	resp, err := (&http.Client{Timeout: httpCheckTimeout}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%s)", summarizeNetError(err))}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api token)"}
	case resp.StatusCode >= http.StatusInternalServerError:
		return Result{Name: name, Detail: fmt.Sprintf("service error (%d)", resp.StatusCode)}
	default:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	}
}

// CheckNtfy reports whether push notifications are configured.
func CheckNtfy(topic string) Result {
	const name = "Notifications"

	if strings.TrimSpace(topic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: strings.TrimSpace(topic)}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
