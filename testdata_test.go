// testdata_test.go: Shared known-answer test data: one fixed test account and
// ciphertexts produced for it.

package vault_test

const (
	userEmail    = "foobar@example.com"
	userPassword = "asdasdasd"

	userPbkdf2Iterations    = 100000
	userArgon2idIterations  = 3
	userArgon2idMemoryMiB   = 64
	userArgon2idParallelism = 4

	userMasterKeyPbkdf2B64    = "WKBariwK2lofMJ27IZhzWlXvrriiH6Tht66VjxcRF7c="
	userMasterKeyArgon2idB64  = "gQc7HNh/OOacqSP5fk3rza6sRUgIChVXF6xdzX8+7OM="
	userMasterPasswordHashB64 = "7jACo78yJ4rlybclGvCGjcE1bqPBXO3Gjvvg9mkFnl8="
	// userSymmetricKeyCipherString wraps the user's key pair under the
	// master key.
	userSymmetricKeyCipherString = "2.BztLR8IR0LVpkRL222P4rg==|cBSzwekYt1RPgYAEHI29mtqrjRge8U+FOSmtJtheAMnaEq4eC" +
		"EurazgzRweksbE9abJYxriOXFnzTR/13HyCJqO9ytLK11N+G0kmhdW/scM=|nLLHbuK4KnVJnRyV" +
		"IfOu396iI7xJ/ZXWYHRscMFugTI="

	// userPrivateKeyCipherString wraps the user's RSA private key (PKCS#8
	// DER) under the symmetric keys.
	userPrivateKeyCipherString = "2.G+7HwPaG5oG6GqQAC1ANsA==|wH37HJOmlJ3N1BUo9sncrcoHRCKR6hJnCDyKOKvd1TfzRWu5u" +
		"NLtzYmd33mG155jYTX6Sa+HD83eGRoWzjlZxPeX40nHVFEsLbqAyNgpMfLahtF4mM2fcaTLuPpOQ" +
		"xY+tNdFaU8lgjH42eYAkRR0aPjUaX9WYWZoJvFFz/4bQjMM9kmKIC6kuhHerDZq/hr+6TwMJXLz7" +
		"Y+NXvP5ESdU8D1INaDBqlny5K1VtvvLj3hdVuBM6J1NaDPcrUBjGq9tBLa1fpc0r3HUHpRojWEfK" +
		"UbwXE1w0DcCb/7XiVdSK0GUxhEJrjrdKoSjih5usXQ3lgj6sj2x/OA2zcHIpI1p5ATmbgEWtTsYP" +
		"yBH+JxdIVL8IDuE2v3IcTIDDAsPIbYKy2Lzr/+GDAginVs3FH16o80e3lJf1r6Nj1szXgC617fNt" +
		"rrU+hmZXk4vf0+YRr6GBIcfWk0pFV9Emf7cMiPGzopIK7OQLBME0xdQ2h3lMPQu6rPUbNmt4OWmD" +
		"jUJ/1fqDhPZN0oJT6KLm7V/jdF8a0pnO7mm4WXc3/drekOEwugG7MAwzXfWohtnP0mceMNf7K2vF" +
		"NbZGu4CfiICXVXszrHkusKCz/oa6aDUbX9XHYnzl5nulavp0TGI5CMPx5ryImIoXeYO9REdTT116" +
		"iU0AR97e9cimnMXcdj+s4vmYzvCDTuSFOsZ5VKFSAjzXJRbFErPBW6WO3P38IZWnviDUEgg9gPgJ" +
		"k64iX2+0XVUXppvpbe9OSqQTS5wOSRg1zQIabY7G7L7Oc6ohi9l8Av0f8OkS+nVqpJhSFiH/DPqs" +
		"XKyswN17mcdVK1NBN9E5lHr++y6lfpopnUou9Ub4LPUkshaFo3MK8mqvqIFl2h0Uo5JwGE51f2fJ" +
		"L/s4mLKMC2jmRbd83FCTmttrcCgRJJyuctbqN1G5HTCijgi6B9Asj4UoQrhJPq8pAYgqdXpCTXHY" +
		"n/8gXXVmzc8QrPIJAUfe6EsxZuL7IdjhgS0LUv16b1E0DqyXT6/3ipfLOjK/ay6VoUrTRuku9APd" +
		"c4NGwLhNQLbmdscBBDlfd/3rgbv1f3StkSMtNDGTp6Bk+6MppjCKF1jcKE/HKhi8/qpgb+P5yN8P" +
		"+g6QH/YmUVjYW8BQqvVraYoRVvrZZ5dJDGgdIlv15R0Lv/CvCtfRl9edcOZ9MDbHYcTtGYL+hIaj" +
		"sqMurJwadlQ6V9zY48V7SUyCbVFaW4ZqHsZeg2TqmhqJb8hvYjER8Jd7A1jdO6JuQCQI6TiZb+bX" +
		"pomEOud3k6n21Hcttk6N8uYXTX93Tf62tu4mnBqBq5FHJoaz0E4qYUmfKjhWXn2e7k4e0SGDx6wp" +
		"/wr4mn/R6xGM3gI32puuUSDl5h0trrlIAbW0uGI8FWQKSskw7N+SOSTs7eYvQBrHKaaOtL6OPxBi" +
		"ahLtay48uR3CPBpstw1pSL6QSi9RnL1j42BKpr7YwlyXTceQ/0V0PTfsWBYg85nBG21qwvTHPMim" +
		"2XRibnIsW5YQhxzUBQ/JDNOvsuVc3HTGvaXza0VRXWJ0SYo0XZpjrQbGw6eICpXcUreZVecO5uoH" +
		"h1WC1za2TY1IZ38IqwhZ8ZBjaN67H0GaTNqVjDaa46RoticfyDs0SJSWgssTLUwJts7RSd1+lQ=|" +
		"rFzZYOkVQOu5mEWWDfvPpLrdIrOoOy8rmJfbJUjPV94="

	// testCipherStringAsymmetric is "Test" encrypted with the user's
	// public key.
	testCipherStringAsymmetric = "4.CzrGfIA+mHbPJy9km5J+gsC4mgwvu5267Xk2kfBscqroqEFza6g2a+fkRcaoXOIX+1Pq7Dcwlb" +
		"gQ6GVMMwA8Orm4uA4v8XCGH2Zsj3wVVnloNxsVYDmny6HFWMuJdfbNUXO/jdIjF8R8hzPka2hQ5j" +
		"AZ3d81ivaQ+EqC9uKU+UOudAx9oPoD3F12DgVZJxKrbL+yi9Z8rD4ospic9ntuUfOUEesRD/q/g9" +
		"yTaKWwdPnegyIfId9cB4PhUZhMx02kDildno4VOGu6iTpLmeRZPi2RY3YN9tCDzYnxbK1Nf41zzQ" +
		"YRbUPunAoQPCIv8Akpq0hEfUhciN3pqMSVtqUiKA=="

	// testCipherString is "Test" encrypted with the user's symmetric keys.
	testCipherString = "2.OixUIKgN6/vWRoSvC0aTCA==|Ts7tpWXO28X2l7XSU4trsA==|q6Vz+/1QADVZRwZ1qoPoRoSv" +
		"Vd01A6le+nbSQxjmGDI="
)
