package app

// Upper bound on records returned by a single list call.
const MaxListedRecords = 100
