package config

import "strings"

const DefaultRPCURL = "http://localhost:8545"

// Key describes one resolvable configuration value and where it may come from.
type Key struct {
	Name    string
	EnvVars []string
	Prompt  string
	Default string
	Secret  bool
}

var (
	KeyPrivateKey = Key{
		Name:    "privateKey",
		EnvVars: []string{"PRIVATE_KEY"},
		Prompt:  "Enter your private key: ",
		Secret:  true,
	}
	KeyRPCURL = Key{
		Name:    "ethereumRpcUrl",
		EnvVars: []string{"ETH_RPC_URL", "RPC_URL"},
		Prompt:  "Enter Ethereum RPC URL: ",
		Default: DefaultRPCURL,
	}
	KeyEtherscanAPIKey = Key{
		Name:    "ethereumEtherscanApiKey",
		EnvVars: []string{"ETHERSCAN_API_KEY"},
		Prompt:  "Enter Ethereum Etherscan API KEY: (https://etherscan.io/myaccount) ",
		Secret:  true,
	}
	KeyWorldIDRouter = Key{
		Name:    "worldIDRouterAddress",
		EnvVars: []string{"WORLD_ID_ROUTER_ADDRESS"},
		Prompt:  "Enter the WorldIDRouter address: ",
	}
	KeyGroupID = Key{
		Name:    "groupId",
		EnvVars: []string{"GROUP_ID"},
		Prompt:  "Enter WorldIDRouter group id: ",
	}
	KeyActionID = Key{
		Name:    "actionId",
		EnvVars: []string{"ACTION_ID"},
		Prompt:  "Enter ActionId: ",
	}
	KeyERC20Address = Key{
		Name:    "erc20Address",
		EnvVars: []string{"ERC20_ADDRESS"},
		Prompt:  "Enter ERC20 address: ",
	}
	KeyHolderAddress = Key{
		Name:    "holderAddress",
		EnvVars: []string{"HOLDER_ADDRESS"},
		Prompt:  "Enter holder address: ",
	}
	KeyAirdropAmount = Key{
		Name:    "airdropAmount",
		EnvVars: []string{"AIRDROP_AMOUNT"},
		Prompt:  "Enter amount to airdrop: ",
	}
)

// ConnectionKeys are resolved before any chain interaction.
var ConnectionKeys = []Key{KeyPrivateKey, KeyRPCURL, KeyEtherscanAPIKey}

// AirdropKeys are the constructor parameters shared by the airdrop contracts.
var AirdropKeys = []Key{KeyGroupID, KeyActionID, KeyERC20Address, KeyHolderAddress, KeyAirdropAmount}

var registry = map[string]Key{}

func init() {
	for _, k := range []Key{
		KeyPrivateKey, KeyRPCURL, KeyEtherscanAPIKey, KeyWorldIDRouter,
		KeyGroupID, KeyActionID, KeyERC20Address, KeyHolderAddress, KeyAirdropAmount,
	} {
		registry[k.Name] = k
	}
}

// LookupKey returns the registered key for name. Unknown names get a key
// whose environment variable is derived from the name (groupId -> GROUP_ID).
func LookupKey(name string) Key {
	if k, ok := registry[name]; ok {
		return k
	}
	return Key{
		Name:    name,
		EnvVars: []string{EnvName(name)},
		Prompt:  "Enter " + name + ": ",
	}
}

// IsSecret reports whether the named key must be masked when displayed.
func IsSecret(name string) bool {
	return registry[name].Secret
}

// EnvName converts a camelCase key into an upper snake case variable name.
func EnvName(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// Mask hides all but the last four characters of a secret value.
func Mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
