// Package holtwinters implements additive Holt-Winters (triple exponential
// smoothing) for monthly series.
//
// The model keeps a level, an additive trend and m additive seasonal
// indices:
//
//	level:    l_t = α(y_t − s_{t−m}) + (1−α)(l_{t−1} + b_{t−1})
//	trend:    b_t = β(l_t − l_{t−1}) + (1−β)b_{t−1}
//	seasonal: s_t = γ(y_t − l_t) + (1−γ)s_{t−m}
//	forecast: ŷ_{t+h} = l_t + h·b_t + s_{t+h−m}
//
// α, β and γ are chosen by minimising the one-step-ahead sum of squared
// errors with Nelder-Mead over logit-scaled parameters.
package holtwinters
