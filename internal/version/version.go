package version

// Current is the release version reported by the pdl command.
const Current = "0.1.0"
