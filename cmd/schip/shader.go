package main

const vertex = `
#version 420

in  vec3 vertPos;
in  vec2 vertTexCoord;
out vec2 fragTexCoord;

void main() {
    fragTexCoord = vertTexCoord;
    gl_Position  = vec4(vertPos, 1);
}
`

const fragment = `
#version 420

uniform vec4 colorOff;
uniform vec4 colorOn;

layout (binding = 0) uniform sampler2D pixels;

in  vec2 fragTexCoord;
out vec4 outputColor;

void main() {
    // Lit pixels are stored as 0xff in the red channel, unlit ones as 0.
    float lit = texture(pixels, fragTexCoord).r;
    outputColor = mix(colorOff, colorOn, step(0.5, lit));
}
`
