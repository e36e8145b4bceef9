package common

// TimestampLayout is the ISO-8601 layout (seconds precision, numeric offset)
// used when the server stamps createDate and updateDate.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// BearerScheme is the Authorization header scheme carrying access tokens.
const BearerScheme = "Bearer"
