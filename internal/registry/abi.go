package registry

// contractABI is the deployed registry contract interface. An override can be
// supplied through configuration for contract upgrades that keep the same
// call surface.
const contractABI = `[
  {"inputs": [], "stateMutability": "nonpayable", "type": "constructor"},
  {"anonymous": false, "inputs": [{"indexed": true, "internalType": "address", "name": "user", "type": "address"}, {"indexed": false, "internalType": "string", "name": "did", "type": "string"}], "name": "DIDRegistered", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": true, "internalType": "bytes32", "name": "credentialHash", "type": "bytes32"}, {"indexed": true, "internalType": "address", "name": "issuer", "type": "address"}, {"indexed": true, "internalType": "address", "name": "holder", "type": "address"}, {"indexed": false, "internalType": "uint256", "name": "issuedAt", "type": "uint256"}, {"indexed": false, "internalType": "uint256", "name": "expiryDate", "type": "uint256"}, {"indexed": false, "internalType": "string", "name": "name", "type": "string"}, {"indexed": false, "internalType": "string", "name": "experience", "type": "string"}], "name": "CredentialIssued", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": true, "internalType": "bytes32", "name": "credentialHash", "type": "bytes32"}, {"indexed": true, "internalType": "address", "name": "issuer", "type": "address"}], "name": "CredentialRevoked", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": true, "internalType": "address", "name": "owner", "type": "address"}, {"indexed": true, "internalType": "bytes32", "name": "documentHash", "type": "bytes32"}, {"indexed": false, "internalType": "uint256", "name": "validFrom", "type": "uint256"}, {"indexed": false, "internalType": "uint256", "name": "validTo", "type": "uint256"}, {"indexed": false, "internalType": "string", "name": "organizationName", "type": "string"}], "name": "DocumentRegistered", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": true, "internalType": "address", "name": "issuer", "type": "address"}], "name": "IssuerAuthorized", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": true, "internalType": "address", "name": "issuer", "type": "address"}], "name": "IssuerRevoked", "type": "event"},
  {"inputs": [{"internalType": "address", "name": "issuer", "type": "address"}], "name": "authorizeIssuer", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "", "type": "address"}], "name": "authorizedIssuers", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "", "type": "address"}], "name": "didRegistry", "outputs": [{"internalType": "string", "name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "holder", "type": "address"}], "name": "getHolderCredentials", "outputs": [{"internalType": "bytes32[]", "name": "", "type": "bytes32[]"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "issuer", "type": "address"}], "name": "getIssuerCredentials", "outputs": [{"internalType": "bytes32[]", "name": "", "type": "bytes32[]"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "bytes32", "name": "documentHash", "type": "bytes32"}], "name": "isDocumentRegistered", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "holder", "type": "address"}, {"internalType": "bytes32", "name": "credentialHash", "type": "bytes32"}, {"internalType": "uint256", "name": "expiryDate", "type": "uint256"}, {"internalType": "string", "name": "name", "type": "string"}, {"internalType": "string", "name": "experience", "type": "string"}], "name": "issueCredential", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [], "name": "owner", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "string", "name": "did", "type": "string"}], "name": "registerDID", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "bytes32", "name": "documentHash", "type": "bytes32"}, {"internalType": "uint256", "name": "validFrom", "type": "uint256"}, {"internalType": "uint256", "name": "validTo", "type": "uint256"}, {"internalType": "string", "name": "organizationName", "type": "string"}], "name": "registerDocument", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "bytes32", "name": "credentialHash", "type": "bytes32"}], "name": "revokeCredential", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "issuer", "type": "address"}], "name": "revokeIssuer", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "bytes32", "name": "credentialHash", "type": "bytes32"}], "name": "verifyCredential", "outputs": [{"internalType": "bool", "name": "exists", "type": "bool"}, {"internalType": "bool", "name": "revoked", "type": "bool"}, {"internalType": "bool", "name": "expired", "type": "bool"}, {"internalType": "address", "name": "issuer", "type": "address"}, {"internalType": "address", "name": "holder", "type": "address"}, {"internalType": "uint256", "name": "issuedAt", "type": "uint256"}, {"internalType": "uint256", "name": "expiryDate", "type": "uint256"}, {"internalType": "string", "name": "name", "type": "string"}, {"internalType": "string", "name": "experience", "type": "string"}], "stateMutability": "view", "type": "function"}
]`
