package journal

const (
	luaPut = `
		-- Store a hash field and return what it held before
		-- KEYS[1] = hash key
		-- ARGV[1] = field
		-- ARGV[2] = value
		-- Returns: {1, oldValue} if the field existed, or {0, ""}

		local old = redis.call('HGET', KEYS[1], ARGV[1])
		redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
		if old then
			return {1, old}
		end
		return {0, ""}
		`

	luaRemove = `
		-- Delete a hash field and return what it held
		-- KEYS[1] = hash key
		-- ARGV[1] = field
		-- Returns: {1, oldValue} if the field existed, or {0, ""}

		local old = redis.call('HGET', KEYS[1], ARGV[1])
		if not old then
			return {0, ""}
		end
		redis.call('HDEL', KEYS[1], ARGV[1])
		return {1, old}
		`
)
