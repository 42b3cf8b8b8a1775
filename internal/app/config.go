package app

import (
	"time"

	"github.com/kizunalabs/kizuna-backend/internal/pkg/logger"
	"github.com/kizunalabs/kizuna-backend/internal/profile"
	"github.com/kizunalabs/kizuna-backend/internal/utils"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Profile engine tunables. Passed explicitly into services so tests can
	// exercise multiple parameterizations without process-wide state.
	Profile profile.Config

	PineconeIndex string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	// SCORE_FLOOR is deployment specific: different embedding services
	// produce different baseline similarity distributions.
	halfLifeDays := utils.GetEnvAsFloat("HALF_LIFE_DAYS", 30, log)
	scoreFloor := utils.GetEnvAsFloat("SCORE_FLOOR", 0.1, log)
	maxMatchResults := utils.GetEnvAsInt("MAX_MATCH_RESULTS", 5, log)
	embedDim := utils.GetEnvAsInt("EMBED_DIM", 1536, log)

	pineconeIndex := utils.GetEnv("PINECONE_INDEX", "value-profiles", log)

	return Config{
		JWTSecretKey:    jwtSecretKey,
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,
		Profile: profile.Config{
			HalfLifeDays:    halfLifeDays,
			ScoreFloor:      scoreFloor,
			MaxMatchResults: maxMatchResults,
			EmbedDim:        embedDim,
		},
		PineconeIndex: pineconeIndex,
	}
}
