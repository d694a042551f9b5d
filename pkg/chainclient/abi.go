package chainclient

// vaultABI is the minimal settlement-contract interface the agent relies
// on (spec.md §6.2): commit, settle, and arbitrate writes, plus the reads
// needed for admission checks and status polling. A full deployment's ABI
// carries more than this; only the functions the agent calls are listed.
const vaultABI = `[
	{"type":"function","name":"commitBilateralBet","stateMutability":"nonpayable",
	 "inputs":[
	   {"name":"commitment","type":"tuple","components":[
	     {"name":"tradesRoot","type":"bytes32"},
	     {"name":"creator","type":"address"},
	     {"name":"filler","type":"address"},
	     {"name":"creatorAmount","type":"uint256"},
	     {"name":"fillerAmount","type":"uint256"},
	     {"name":"deadline","type":"uint256"},
	     {"name":"nonce","type":"uint256"},
	     {"name":"expiry","type":"uint256"}
	   ]},
	   {"name":"creatorSig","type":"bytes"},
	   {"name":"fillerSig","type":"bytes"}
	 ],
	 "outputs":[{"name":"betId","type":"uint64"}]},

	{"type":"function","name":"settleByAgreement","stateMutability":"nonpayable",
	 "inputs":[
	   {"name":"agreement","type":"tuple","components":[
	     {"name":"betId","type":"uint256"},
	     {"name":"winner","type":"address"},
	     {"name":"winsCount","type":"uint256"},
	     {"name":"validTrades","type":"uint256"},
	     {"name":"isTie","type":"bool"},
	     {"name":"expiry","type":"uint256"},
	     {"name":"settlementNonce","type":"uint256"}
	   ]},
	   {"name":"sigA","type":"bytes"},
	   {"name":"sigB","type":"bytes"}
	 ],
	 "outputs":[]},

	{"type":"function","name":"requestArbitration","stateMutability":"nonpayable",
	 "inputs":[{"name":"betId","type":"uint64"}],"outputs":[]},

	{"type":"function","name":"getBet","stateMutability":"view",
	 "inputs":[{"name":"betId","type":"uint64"}],
	 "outputs":[{"name":"","type":"tuple","components":[
	   {"name":"status","type":"uint8"},
	   {"name":"creator","type":"address"},
	   {"name":"filler","type":"address"},
	   {"name":"tradesRoot","type":"bytes32"},
	   {"name":"deadline","type":"uint256"}
	 ]}]},

	{"type":"function","name":"nonces","stateMutability":"view",
	 "inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},

	{"type":"function","name":"balances","stateMutability":"view",
	 "inputs":[{"name":"addr","type":"address"}],
	 "outputs":[{"name":"available","type":"uint256"},{"name":"locked","type":"uint256"}]},

	{"type":"event","name":"Committed","anonymous":false,
	 "inputs":[{"name":"betId","type":"uint64","indexed":true}]}
]`

// directoryABI is the bot-directory contract's minimal interface.
const directoryABI = `[
	{"type":"function","name":"isRegistered","stateMutability":"view",
	 "inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"","type":"bool"}]},

	{"type":"function","name":"getActiveKeeperCount","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]},

	{"type":"function","name":"getRegisteredAddresses","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address[]"}]}
]`
